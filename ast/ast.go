// Package ast defines the immutable, typed Cypher AST. Every node is
// constructed once and never mutated; structural invariants (such as the
// node/relationship alternation in a path) are enforced by smart
// constructors rather than a post-construction Validate method.
package ast

import (
	"fmt"

	"github.com/flanksource/yellowstone-kql/diag"
)

// Identifier is a bound or free name reference, carrying its own span for
// diagnostics that point at a specific use site.
type Identifier struct {
	Name string
	Span diag.Span
}

// LiteralKind tags the Go type backing a Literal's Value.
type LiteralKind int

const (
	KindString LiteralKind = iota
	KindNumber
	KindBool
	KindNull
)

// Literal is a constant value appearing in a pattern property map or an
// expression.
type Literal struct {
	Value any
	Kind  LiteralKind
	Span  diag.Span
}

// Direction is the relationship arrow orientation in a pattern.
type Direction int

const (
	Out Direction = iota
	In
	Both
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "Out"
	case In:
		return "In"
	default:
		return "Both"
	}
}

// PathLength is the `*m..n` variable-length relationship micro-syntax.
// Min and Max are nil when unspecified (bare `*` means unbounded both
// ways).
type PathLength struct {
	Min *int
	Max *int
}

// NodePattern is `(var:Label1:Label2 {prop: value, ...})`.
type NodePattern struct {
	Variable   *Identifier
	Labels     []Identifier
	Properties map[string]Literal
	Span       diag.Span
}

// RelationshipPattern is `-[var:Type*min..max]->` (or `<-...-`, `-...-`).
type RelationshipPattern struct {
	Variable  *Identifier
	Type      *Identifier
	Direction Direction
	Length    *PathLength
	Span      diag.Span
}

// PathKind distinguishes a plain pattern path from a shortestPath(...) or
// allShortestPaths(...) pseudo-call wrapping it.
type PathKind int

const (
	PlainPath PathKind = iota
	ShortestPathCall
	AllShortestPathsCall
)

// PathExpression is an alternating chain of node and relationship
// patterns. NewPathExpression is the only way to build one: it enforces
// spec.md's invariant `nodes.len == relationships.len + 1` (or the
// single-node, zero-relationship case).
type PathExpression struct {
	Nodes         []NodePattern
	Relationships []RelationshipPattern
	// Alias is the `p = ...` path variable binding, when present.
	Alias *Identifier
	// Kind marks whether this path is wrapped in shortestPath(...) or
	// allShortestPaths(...); PlainPath otherwise.
	Kind PathKind
	Span diag.Span
}

// NewPathExpression validates and constructs a PathExpression.
func NewPathExpression(nodes []NodePattern, rels []RelationshipPattern, span diag.Span) (*PathExpression, *diag.Diagnostic) {
	if len(nodes) == 1 && len(rels) == 0 {
		return &PathExpression{Nodes: nodes, Relationships: rels, Span: span}, nil
	}
	if len(nodes) != len(rels)+1 {
		return nil, diag.New(diag.InvalidPathStructure,
			"path has %d nodes and %d relationships; expected nodes == relationships + 1",
			len(nodes), len(rels)).WithSpan(span)
	}
	return &PathExpression{Nodes: nodes, Relationships: rels, Span: span}, nil
}

// MatchClause is one `[OPTIONAL] MATCH path, path, ...`.
type MatchClause struct {
	Paths    []PathExpression
	Optional bool
	Span     diag.Span
}

// Expr is the sum type for WHERE/RETURN expressions. Each variant
// implements exprNode as a marker; pattern matching is a type switch, per
// spec.md §9's guidance to replace open class hierarchies with tagged
// unions.
type Expr interface {
	exprNode()
	ExprSpan() diag.Span
}

type Comparison struct {
	Op    string // "=", "<>", "<", ">", "<=", ">="
	Left  Expr
	Right Expr
	Span  diag.Span
}

func (Comparison) exprNode() {}
func (c Comparison) ExprSpan() diag.Span { return c.Span }

type LogicalOp string

const (
	LAnd LogicalOp = "AND"
	LOr  LogicalOp = "OR"
	LNot LogicalOp = "NOT"
)

type Logical struct {
	Op       LogicalOp
	Operands []Expr
	Span     diag.Span
}

func (Logical) exprNode() {}
func (l Logical) ExprSpan() diag.Span { return l.Span }

type PropertyExpr struct {
	Var  string
	Name string
	Span diag.Span
}

func (PropertyExpr) exprNode() {}
func (p PropertyExpr) ExprSpan() diag.Span { return p.Span }

type IdentifierExpr struct {
	Name string
	Span diag.Span
}

func (IdentifierExpr) exprNode() {}
func (i IdentifierExpr) ExprSpan() diag.Span { return i.Span }

type LiteralExpr struct {
	Literal
}

func (LiteralExpr) exprNode() {}
func (l LiteralExpr) ExprSpan() diag.Span { return l.Span }

type FunctionExpr struct {
	Name string
	Args []Expr
	Span diag.Span
}

func (FunctionExpr) exprNode() {}
func (f FunctionExpr) ExprSpan() diag.Span { return f.Span }

// WhereClause wraps the filter expression attached to a MATCH.
type WhereClause struct {
	Condition Expr
	Span      diag.Span
}

// OrderDirection is ASC or DESC in an ORDER BY clause.
type OrderDirection int

const (
	Asc OrderDirection = iota
	Desc
)

type OrderItem struct {
	Expr      Expr
	Direction OrderDirection
}

// ReturnItem is `expr [AS alias]`.
type ReturnItem struct {
	Expr  Expr
	Alias *Identifier
	Span  diag.Span
}

// ReturnClause is `[DISTINCT] item, ... [ORDER BY ...] [SKIP n] [LIMIT n]`.
type ReturnClause struct {
	Items    []ReturnItem
	Distinct bool
	OrderBy  []OrderItem
	Skip     *int
	Limit    *int
	Span     diag.Span
}

// Query is the root AST node for one Cypher statement.
type Query struct {
	Match  MatchClause
	Where  *WhereClause
	Return ReturnClause
	Span   diag.Span
}

// String renders a compact debug form, used by tests and diagnostics —
// not a serialization format.
func (n NodePattern) String() string {
	v := ""
	if n.Variable != nil {
		v = n.Variable.Name
	}
	labels := ""
	for _, l := range n.Labels {
		labels += ":" + l.Name
	}
	return fmt.Sprintf("(%s%s)", v, labels)
}
