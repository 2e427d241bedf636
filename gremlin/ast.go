// Package gremlin parses Gremlin traversal step chains and lowers them to
// the same ast.Query tree the Cypher parser produces, so every downstream
// stage (resolver, planner, optimizer, emitter) sees one representation.
package gremlin

import "github.com/flanksource/yellowstone-kql/diag"

// ValueKind tags the Go type backing a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindNull
)

// Value is one argument literal from a step call.
type Value struct {
	Raw  any
	Kind ValueKind
}

// Predicate is a P.gt/P.lt/... style comparison argument to has(), e.g.
// has('age', gt(30)).
type Predicate struct {
	Op    string // gt, gte, lt, lte, eq, neq, within, without
	Value Value
}

// Step is the sum type for one traversal link in a step chain.
type Step interface{ stepNode() }

// VertexStep is g.V() or g.V(id, id, ...). Multiple ids are kept (rather
// than dropped) and lowered into a disjunctive id filter.
type VertexStep struct {
	IDs  []string
	Span diag.Span
}

func (VertexStep) stepNode() {}

// EdgeStep is g.E() or g.E(id, ...).
type EdgeStep struct {
	IDs  []string
	Span diag.Span
}

func (EdgeStep) stepNode() {}

// FilterStep covers hasLabel/has/hasId/hasKey/hasValue.
type FilterStep struct {
	FilterType string // hasLabel, has, hasId, hasKey, hasValue
	Property   string
	Value      *Value
	Predicate  *Predicate
	Span       diag.Span
}

func (FilterStep) stepNode() {}

// TraversalStep covers out/in/both and their Edge/Vertex variants.
type TraversalStep struct {
	Direction     string // out, in, both
	TraversalType string // vertex, edge
	EdgeLabel     string
	Span          diag.Span
}

func (TraversalStep) stepNode() {}

// ProjectionStep covers values/valueMap/properties/elementMap.
type ProjectionStep struct {
	ProjectionType string
	PropertyNames  []string
	Span           diag.Span
}

func (ProjectionStep) stepNode() {}

// LimitStep is limit(n).
type LimitStep struct {
	Count int
	Span  diag.Span
}

func (LimitStep) stepNode() {}

// OrderStep is order() optionally modulated by a following by(prop, dir).
type OrderStep struct {
	By    string
	Order string // asc, desc
	Span  diag.Span
}

func (OrderStep) stepNode() {}

// CountStep is count().
type CountStep struct{ Span diag.Span }

func (CountStep) stepNode() {}

// DedupStep is dedup().
type DedupStep struct{ Span diag.Span }

func (DedupStep) stepNode() {}

// Traversal is the parsed step chain rooted at `g`.
type Traversal struct {
	Steps []Step
}
