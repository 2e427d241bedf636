package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, source string) []TokenType {
	t.Helper()
	toks, err := TokenizeAll(source)
	require.Nil(t, err)
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeKeywordsAndPunctuation(t *testing.T) {
	types := tokenTypes(t, "MATCH (n:User) WHERE n.age > 30 RETURN n")
	assert.Equal(t, []TokenType{
		MATCH, LParen, Ident, Colon, Ident, RParen, WHERE, Ident, Dot, Ident,
		Gt, Int, RETURN, Ident, EOF,
	}, types)
}

func TestTokenizeStringLiteral(t *testing.T) {
	toks, err := TokenizeAll(`'John'`)
	require.Nil(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, String, toks[0].Type)
	assert.Equal(t, "John", toks[0].Value)
}

func TestTokenizeArrows(t *testing.T) {
	types := tokenTypes(t, "-[r:KNOWS]->")
	assert.Equal(t, []TokenType{Dash, LBracket, Ident, Colon, Ident, RBracket, ArrowOutR, EOF}, types)
}

func TestTokenizeNumbers(t *testing.T) {
	toks, err := TokenizeAll("42 3.14")
	require.Nil(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, Int, toks[0].Type)
	assert.Equal(t, "42", toks[0].Value)
	assert.Equal(t, Float, toks[1].Type)
	assert.Equal(t, "3.14", toks[1].Value)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := TokenizeAll(`'unterminated`)
	require.NotNil(t, err)
	assert.Equal(t, "UnterminatedString", string(err.Kind))
}

func TestSpanTracksLineAndColumn(t *testing.T) {
	toks, err := TokenizeAll("MATCH\n(n)")
	require.Nil(t, err)
	var lparen Token
	for _, tok := range toks {
		if tok.Type == LParen {
			lparen = tok
		}
	}
	assert.Equal(t, 2, lparen.Span.Line)
}
