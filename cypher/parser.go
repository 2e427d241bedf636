// Package cypher implements a recursive-descent parser that builds the
// immutable ast.Query tree from Cypher source text. The parser's control
// flow (current/peek token fields, expect/currentIs helpers) mirrors the
// teacher's own hand-written recursive-descent parser.
package cypher

import (
	"strconv"
	"strings"

	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/diag"
	"github.com/flanksource/yellowstone-kql/lexer"
)

// Parser holds the two-token lookahead window over a Lexer.
type Parser struct {
	lex     *lexer.Lexer
	cur     lexer.Token
	peek    lexer.Token
	errs    diag.List
	lexErr  bool
}

// New creates a Parser over source.
func New(source string) *Parser {
	p := &Parser{lex: lexer.New(source)}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	tok, err := p.lex.Next()
	if err != nil {
		p.errs = append(p.errs, err)
		p.lexErr = true
		p.peek = lexer.Token{Type: lexer.EOF}
		return
	}
	p.peek = tok
}

func (p *Parser) addError(kind diag.Kind, format string, args ...any) {
	p.errs = append(p.errs, diag.New(kind, format, args...).WithSpan(p.cur.Span))
}

func (p *Parser) is(t lexer.TokenType) bool     { return p.cur.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peek.Type == t }

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, bool) {
	if p.cur.Type != t {
		p.addError(diag.UnexpectedToken, "expected %s, found %s", t, p.cur.Type)
		return lexer.Token{}, false
	}
	tok := p.cur
	p.next()
	return tok, true
}

// Parse parses one Cypher Query. It returns all accumulated diagnostics
// if any step failed, sorted by span per spec.md §7.
func Parse(source string) (*ast.Query, diag.List) {
	p := New(source)
	q := p.parseQuery()
	if len(p.errs) > 0 {
		p.errs.Sort()
		return nil, p.errs
	}
	return q, nil
}

func (p *Parser) parseQuery() *ast.Query {
	start := p.cur.Span
	optional := false
	if p.is(lexer.OPTIONAL) {
		optional = true
		p.next()
	}
	if _, ok := p.expect(lexer.MATCH); !ok {
		return nil
	}
	paths := p.parsePathList()

	match := ast.MatchClause{Paths: paths, Optional: optional, Span: start}

	var where *ast.WhereClause
	if p.is(lexer.WHERE) {
		whereStart := p.cur.Span
		p.next()
		cond := p.parseExpr()
		where = &ast.WhereClause{Condition: cond, Span: whereStart}
	}

	if _, ok := p.expect(lexer.RETURN); !ok {
		return nil
	}
	ret := p.parseReturnClause()

	if !p.is(lexer.EOF) {
		p.addError(diag.UnexpectedToken, "unexpected trailing token %s", p.cur.Type)
	}

	return &ast.Query{Match: match, Where: where, Return: ret, Span: start}
}

func (p *Parser) parsePathList() []ast.PathExpression {
	var paths []ast.PathExpression
	for {
		if path := p.parsePath(); path != nil {
			paths = append(paths, *path)
		}
		if p.is(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	return paths
}

// parsePath handles the optional `ident = ` path-variable prefix and the
// optional shortestPath(...)/allShortestPaths(...) wrapper before
// delegating to parsePathChain for the node/relationship alternation.
func (p *Parser) parsePath() *ast.PathExpression {
	start := p.cur.Span

	var alias *ast.Identifier
	if p.is(lexer.Ident) && p.peekIs(lexer.Eq) {
		alias = &ast.Identifier{Name: p.cur.Value, Span: p.cur.Span}
		p.next()
		p.next()
	}

	if p.is(lexer.Ident) && (p.cur.Value == "shortestPath" || p.cur.Value == "allShortestPaths") && p.peekIs(lexer.LParen) {
		name := p.cur.Value
		p.next()
		p.next() // consume '('
		inner := p.parsePathChain(start)
		p.expect(lexer.RParen)
		if inner == nil {
			return nil
		}
		inner.Alias = alias
		if name == "shortestPath" {
			inner.Kind = ast.ShortestPathCall
		} else {
			inner.Kind = ast.AllShortestPathsCall
		}
		return inner
	}

	path := p.parsePathChain(start)
	if path != nil {
		path.Alias = alias
	}
	return path
}

func (p *Parser) parsePathChain(start diag.Span) *ast.PathExpression {
	var nodes []ast.NodePattern
	var rels []ast.RelationshipPattern

	n := p.parseNodePattern()
	if n == nil {
		return nil
	}
	nodes = append(nodes, *n)

	for p.is(lexer.Dash) || p.is(lexer.ArrowOutL) {
		rel := p.parseRelPattern()
		if rel == nil {
			break
		}
		rels = append(rels, *rel)
		n := p.parseNodePattern()
		if n == nil {
			break
		}
		nodes = append(nodes, *n)
	}

	path, err := ast.NewPathExpression(nodes, rels, start)
	if err != nil {
		p.errs = append(p.errs, err)
		return nil
	}
	return path
}

func (p *Parser) parseNodePattern() *ast.NodePattern {
	start := p.cur.Span
	if _, ok := p.expect(lexer.LParen); !ok {
		return nil
	}

	var variable *ast.Identifier
	if p.is(lexer.Ident) {
		variable = &ast.Identifier{Name: p.cur.Value, Span: p.cur.Span}
		p.next()
	}

	var labels []ast.Identifier
	for p.is(lexer.Colon) {
		p.next()
		if !p.is(lexer.Ident) {
			p.addError(diag.UnexpectedToken, "expected label after ':'")
			break
		}
		labels = append(labels, ast.Identifier{Name: p.cur.Value, Span: p.cur.Span})
		p.next()
	}

	var props map[string]ast.Literal
	if p.is(lexer.LBrace) {
		props = p.parsePropMap()
	}

	if _, ok := p.expect(lexer.RParen); !ok {
		return nil
	}

	return &ast.NodePattern{Variable: variable, Labels: labels, Properties: props, Span: start}
}

func (p *Parser) parsePropMap() map[string]ast.Literal {
	props := map[string]ast.Literal{}
	p.next() // consume '{'
	if p.is(lexer.RBrace) {
		p.next()
		return props
	}
	for {
		if !p.is(lexer.Ident) {
			p.addError(diag.UnexpectedToken, "expected property key")
			break
		}
		key := p.cur.Value
		p.next()
		if _, ok := p.expect(lexer.Colon); !ok {
			break
		}
		lit := p.parseLiteral()
		props[key] = lit
		if p.is(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RBrace)
	return props
}

func (p *Parser) parseRelPattern() *ast.RelationshipPattern {
	start := p.cur.Span
	leftArrow := p.is(lexer.ArrowOutL)
	p.next() // consume '-' or '<-'

	var variable *ast.Identifier
	var relType *ast.Identifier
	var length *ast.PathLength

	if p.is(lexer.LBracket) {
		p.next()
		if p.is(lexer.Ident) {
			variable = &ast.Identifier{Name: p.cur.Value, Span: p.cur.Span}
			p.next()
		}
		if p.is(lexer.Colon) {
			p.next()
			if !p.is(lexer.Ident) {
				p.addError(diag.UnexpectedToken, "expected relationship type after ':'")
			} else {
				relType = &ast.Identifier{Name: p.cur.Value, Span: p.cur.Span}
				p.next()
			}
		}
		if p.is(lexer.Star) {
			length = p.parsePathLength()
		}
		p.expect(lexer.RBracket)
	}

	var dir ast.Direction
	if leftArrow {
		// <-[...]-
		p.expect(lexer.Dash)
		dir = ast.In
	} else if p.is(lexer.ArrowOutR) {
		p.next()
		dir = ast.Out
	} else if p.is(lexer.Dash) {
		p.next()
		dir = ast.Both
	} else {
		p.addError(diag.UnexpectedToken, "expected relationship arrow terminator")
		dir = ast.Both
	}

	return &ast.RelationshipPattern{Variable: variable, Type: relType, Direction: dir, Length: length, Span: start}
}

func (p *Parser) parsePathLength() *ast.PathLength {
	p.next() // consume '*'
	pl := &ast.PathLength{}

	if p.is(lexer.Int) {
		n, _ := strconv.Atoi(p.cur.Value)
		p.next()
		if p.is(lexer.Dot) {
			p.next()
			p.expect(lexer.Dot)
			if p.is(lexer.Int) {
				m, _ := strconv.Atoi(p.cur.Value)
				p.next()
				pl.Min = &n
				pl.Max = &m
			} else {
				pl.Min = &n
			}
		} else {
			pl.Min = &n
			pl.Max = &n
		}
		return pl
	}

	if p.is(lexer.Dot) {
		p.next()
		p.expect(lexer.Dot)
		if p.is(lexer.Int) {
			m, _ := strconv.Atoi(p.cur.Value)
			p.next()
			pl.Max = &m
		}
	}
	return pl
}

func (p *Parser) parseLiteral() ast.Literal {
	span := p.cur.Span
	switch p.cur.Type {
	case lexer.String:
		v := p.cur.Value
		p.next()
		return ast.Literal{Value: v, Kind: ast.KindString, Span: span}
	case lexer.Int:
		n, _ := strconv.ParseInt(p.cur.Value, 10, 64)
		p.next()
		return ast.Literal{Value: float64(n), Kind: ast.KindNumber, Span: span}
	case lexer.Float:
		f, _ := strconv.ParseFloat(p.cur.Value, 64)
		p.next()
		return ast.Literal{Value: f, Kind: ast.KindNumber, Span: span}
	case lexer.Bool:
		b := strings.EqualFold(p.cur.Value, "true")
		p.next()
		return ast.Literal{Value: b, Kind: ast.KindBool, Span: span}
	case lexer.Null:
		p.next()
		return ast.Literal{Value: nil, Kind: ast.KindNull, Span: span}
	default:
		p.addError(diag.UnexpectedToken, "expected literal, found %s", p.cur.Type)
		p.next()
		return ast.Literal{Kind: ast.KindNull, Span: span}
	}
}

// parseExpr == OrExpr (top-level entry, per grammar).
func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	start := p.cur.Span
	left := p.parseAnd()
	if !p.is(lexer.OR) {
		return left
	}
	operands := []ast.Expr{left}
	for p.is(lexer.OR) {
		p.next()
		operands = append(operands, p.parseAnd())
	}
	return ast.Logical{Op: ast.LOr, Operands: operands, Span: start}
}

func (p *Parser) parseAnd() ast.Expr {
	start := p.cur.Span
	left := p.parseNot()
	if !p.is(lexer.AND) {
		return left
	}
	operands := []ast.Expr{left}
	for p.is(lexer.AND) {
		p.next()
		operands = append(operands, p.parseNot())
	}
	return ast.Logical{Op: ast.LAnd, Operands: operands, Span: start}
}

func (p *Parser) parseNot() ast.Expr {
	if p.is(lexer.NOT) {
		start := p.cur.Span
		p.next()
		operand := p.parseCmp()
		return ast.Logical{Op: ast.LNot, Operands: []ast.Expr{operand}, Span: start}
	}
	return p.parseCmp()
}

var cmpOps = map[lexer.TokenType]string{
	lexer.Eq: "=", lexer.Neq: "<>", lexer.Lt: "<", lexer.Gt: ">",
	lexer.Lte: "<=", lexer.Gte: ">=",
}

func (p *Parser) parseCmp() ast.Expr {
	start := p.cur.Span
	left := p.parsePrimary()
	if op, ok := cmpOps[p.cur.Type]; ok {
		p.next()
		right := p.parsePrimary()
		return ast.Comparison{Op: op, Left: left, Right: right, Span: start}
	}
	return left
}

func (p *Parser) parsePrimary() ast.Expr {
	span := p.cur.Span
	switch p.cur.Type {
	case lexer.LParen:
		p.next()
		e := p.parseExpr()
		p.expect(lexer.RParen)
		return e
	case lexer.String, lexer.Int, lexer.Float, lexer.Bool, lexer.Null:
		lit := p.parseLiteral()
		return ast.LiteralExpr{Literal: lit}
	case lexer.Ident:
		name := p.cur.Value
		p.next()
		if p.is(lexer.LParen) {
			return p.parseFunctionCall(name, span)
		}
		if p.is(lexer.Dot) {
			p.next()
			if !p.is(lexer.Ident) {
				p.addError(diag.UnexpectedToken, "expected property name after '.'")
				return ast.IdentifierExpr{Name: name, Span: span}
			}
			prop := p.cur.Value
			p.next()
			return ast.PropertyExpr{Var: name, Name: prop, Span: span}
		}
		return ast.IdentifierExpr{Name: name, Span: span}
	default:
		p.addError(diag.UnexpectedToken, "expected expression, found %s", p.cur.Type)
		p.next()
		return ast.LiteralExpr{Literal: ast.Literal{Kind: ast.KindNull, Span: span}}
	}
}

func (p *Parser) parseFunctionCall(name string, span diag.Span) ast.Expr {
	p.next() // consume '('
	var args []ast.Expr
	if !p.is(lexer.RParen) {
		for {
			args = append(args, p.parseExpr())
			if p.is(lexer.Comma) {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(lexer.RParen)
	return ast.FunctionExpr{Name: name, Args: args, Span: span}
}

func (p *Parser) parseReturnClause() ast.ReturnClause {
	start := p.cur.Span
	distinct := false
	if p.is(lexer.DISTINCT) {
		distinct = true
		p.next()
	}

	var items []ast.ReturnItem
	for {
		itemStart := p.cur.Span
		e := p.parseExpr()
		var alias *ast.Identifier
		if p.is(lexer.AS) {
			p.next()
			if p.is(lexer.Ident) {
				alias = &ast.Identifier{Name: p.cur.Value, Span: p.cur.Span}
				p.next()
			}
		}
		items = append(items, ast.ReturnItem{Expr: e, Alias: alias, Span: itemStart})
		if p.is(lexer.Comma) {
			p.next()
			continue
		}
		break
	}

	seen := map[string]bool{}
	for _, it := range items {
		if it.Alias == nil {
			continue
		}
		if seen[it.Alias.Name] {
			p.errs = append(p.errs, diag.New(diag.DuplicateAlias, "duplicate return alias %q", it.Alias.Name).WithSpan(it.Alias.Span))
		}
		seen[it.Alias.Name] = true
	}

	var orderBy []ast.OrderItem
	if p.is(lexer.ORDER) {
		p.next()
		p.expect(lexer.BY)
		for {
			e := p.parseExpr()
			dir := ast.Asc
			if p.is(lexer.ASC) {
				p.next()
			} else if p.is(lexer.DESC) {
				dir = ast.Desc
				p.next()
			}
			orderBy = append(orderBy, ast.OrderItem{Expr: e, Direction: dir})
			if p.is(lexer.Comma) {
				p.next()
				continue
			}
			break
		}
	}

	var skip, limit *int
	if p.is(lexer.SKIP) {
		p.next()
		if p.is(lexer.Int) {
			n, _ := strconv.Atoi(p.cur.Value)
			skip = &n
			p.next()
		}
	}
	if p.is(lexer.LIMIT) {
		p.next()
		if p.is(lexer.Int) {
			n, _ := strconv.Atoi(p.cur.Value)
			limit = &n
			p.next()
		}
	}

	return ast.ReturnClause{Items: items, Distinct: distinct, OrderBy: orderBy, Skip: skip, Limit: limit, Span: start}
}
