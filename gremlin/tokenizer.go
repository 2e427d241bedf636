package gremlin

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/flanksource/yellowstone-kql/diag"
)

// predicateArg is the tokenizer's representation of a nested predicate
// call such as gt(30) appearing as an argument to has().
type predicateArg struct {
	name string
	args []any
}

// methodToken is one `.method(args...)` link in the raw step chain, before
// it is interpreted into a typed Step.
type methodToken struct {
	method string
	args   []any
	span   diag.Span
}

// tokenizer splits a Gremlin source string into methodTokens. Its
// character-at-a-time scan mirrors the lexer package's hand-rolled style.
type tokenizer struct {
	src string
	pos int
}

func newTokenizer(src string) *tokenizer {
	return &tokenizer{src: strings.TrimSpace(src)}
}

func (t *tokenizer) tokenize() ([]methodToken, *diag.Diagnostic) {
	var tokens []methodToken
	for t.pos < len(t.src) {
		t.skipSpace()
		if t.pos >= len(t.src) {
			break
		}
		if t.src[t.pos] == '.' {
			t.pos++
			continue
		}
		start := t.pos
		method := t.readIdent()
		if method == "" {
			return tokens, diag.New(diag.UnexpectedToken, "expected method name at position %d", t.pos)
		}
		t.skipSpace()
		var args []any
		if t.pos < len(t.src) && t.src[t.pos] == '(' {
			a, err := t.readArgs()
			if err != nil {
				return tokens, err
			}
			args = a
		}
		tokens = append(tokens, methodToken{method: method, args: args, span: diag.Span{Start: start, End: t.pos}})
	}
	return tokens, nil
}

func (t *tokenizer) skipSpace() {
	for t.pos < len(t.src) && unicode.IsSpace(rune(t.src[t.pos])) {
		t.pos++
	}
}

func (t *tokenizer) readIdent() string {
	start := t.pos
	for t.pos < len(t.src) {
		c := rune(t.src[t.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			t.pos++
			continue
		}
		break
	}
	return t.src[start:t.pos]
}

func (t *tokenizer) readArgs() ([]any, *diag.Diagnostic) {
	t.pos++ // consume '('
	var args []any
	for t.pos < len(t.src) {
		t.skipSpace()
		if t.pos >= len(t.src) {
			return nil, diag.New(diag.UnexpectedEof, "unterminated argument list")
		}
		if t.src[t.pos] == ')' {
			t.pos++
			break
		}
		v, err := t.readArgValue()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		t.skipSpace()
		if t.pos < len(t.src) && t.src[t.pos] == ',' {
			t.pos++
		}
	}
	return args, nil
}

func (t *tokenizer) readArgValue() (any, *diag.Diagnostic) {
	t.skipSpace()
	if t.pos >= len(t.src) {
		return nil, diag.New(diag.UnexpectedEof, "unexpected end of input reading argument")
	}
	c := t.src[t.pos]

	if c == '\'' || c == '"' {
		return t.readString(c)
	}
	if c == '-' || unicode.IsDigit(rune(c)) {
		return t.readNumber()
	}
	if unicode.IsLetter(rune(c)) {
		name := t.readIdent()
		t.skipSpace()
		if t.pos < len(t.src) && t.src[t.pos] == '(' {
			nested, err := t.readArgs()
			if err != nil {
				return nil, err
			}
			return predicateArg{name: name, args: nested}, nil
		}
		switch strings.ToLower(name) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return name, nil
	}
	return nil, diag.New(diag.UnexpectedToken, "unexpected character %q at position %d", c, t.pos)
}

func (t *tokenizer) readString(quote byte) (string, *diag.Diagnostic) {
	t.pos++ // opening quote
	start := t.pos
	var b strings.Builder
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		if c == quote {
			t.pos++
			return b.String(), nil
		}
		if c == '\\' && t.pos+1 < len(t.src) {
			t.pos += 2
			b.WriteByte(t.src[t.pos-1])
			continue
		}
		b.WriteByte(c)
		t.pos++
	}
	return "", diag.New(diag.UnterminatedString, "unterminated string starting at position %d", start-1)
}

func (t *tokenizer) readNumber() (any, *diag.Diagnostic) {
	start := t.pos
	hasDot := false
	if t.src[t.pos] == '-' {
		t.pos++
	}
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		if c >= '0' && c <= '9' {
			t.pos++
			continue
		}
		if c == '.' && !hasDot {
			hasDot = true
			t.pos++
			continue
		}
		break
	}
	text := t.src[start:t.pos]
	if hasDot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, diag.New(diag.BadNumber, "malformed number %q", text)
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, diag.New(diag.BadNumber, "malformed number %q", text)
	}
	return float64(n), nil
}
