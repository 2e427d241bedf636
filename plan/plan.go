// Package plan converts a resolved Cypher AST into the logical plan tree
// the optimizer rewrites and the emitter walks. Node variants are a
// closed sum type, matched with type switches rather than a virtual
// dispatch hierarchy, in keeping with the rest of this codebase.
package plan

import (
	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/diag"
	"github.com/flanksource/yellowstone-kql/resolver"
)

// CostEstimate is a heuristic annotation attached to every plan node.
type CostEstimate struct {
	Rows float64
	CPU  float64
	IO   float64
}

// Node is the sum type for one logical plan node.
type Node interface {
	planNode()
	Cost() CostEstimate
}

// Scan reads rows from one backend table with no graph-match pattern
// above it. The planner never produces one directly (every PathExpression
// becomes a GraphMatch); it exists for the optimizer and emitter to rely
// on as a plain leaf shape if a future rule ever degenerates a
// single-node GraphMatch into a bare table read.
type Scan struct {
	Table            string
	Variable         string
	Label            string
	ProjectedColumns []string
	Predicate        ast.Expr
	TimeRange        *TimeRangeHint
	IndexHint        string
	EstimatedCost    CostEstimate
}

// TimeRangeHint is lifted out of a Scan's or GraphMatch's predicate by the
// optimizer's TimeRange rule and attached to that same node.
type TimeRangeHint struct {
	Column string
	From   ast.Expr
	To     ast.Expr
}

func (*Scan) planNode() {}
func (s *Scan) Cost() CostEstimate { return s.EstimatedCost }

// Filter applies a residual predicate above its input.
type Filter struct {
	Input         Node
	Predicate     ast.Expr
	EstimatedCost CostEstimate
}

func (*Filter) planNode() {}
func (f *Filter) Cost() CostEstimate { return f.EstimatedCost }

// GraphMatch pattern-matches a whole PathExpression against the graph.
type GraphMatch struct {
	Path          ast.PathExpression
	Bindings      map[string]string // variable -> backend table name (the variable itself if unlabeled); no column expressions
	Predicate     ast.Expr
	TimeRange     *TimeRangeHint
	IndexHint     string
	EstimatedCost CostEstimate
}

func (*GraphMatch) planNode() {}
func (g *GraphMatch) Cost() CostEstimate { return g.EstimatedCost }

// PathConstraint bounds a path-algorithm node.
type PathConstraint struct {
	MaxLength     *int
	WeightColumn  string
	Bidirectional bool
}

// ShortestPath is the plan node for a shortestPath(...) pseudo-call.
type ShortestPath struct {
	Source, Target string
	RelType        string
	Direction      ast.Direction
	Constraints    PathConstraint
	EstimatedCost  CostEstimate
}

func (*ShortestPath) planNode() {}
func (s *ShortestPath) Cost() CostEstimate { return s.EstimatedCost }

// AllPaths is the plan node for allShortestPaths(...) and bare
// variable-length `*m..n` relationships.
type AllPaths struct {
	Source, Target string
	RelType        string
	Direction      ast.Direction
	Min, Max       *int
	CycleDetect    bool
	AllShortest    bool
	EstimatedCost  CostEstimate
}

func (*AllPaths) planNode() {}
func (a *AllPaths) Cost() CostEstimate { return a.EstimatedCost }

// JoinKind is Inner or LeftOuter.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftOuterJoin
)

// Join cross-joins two independent pattern matches (multiple MATCH paths).
type Join struct {
	Left, Right   Node
	On            ast.Expr
	Kind          JoinKind
	EstimatedCost CostEstimate
}

func (*Join) planNode() {}
func (j *Join) Cost() CostEstimate { return j.EstimatedCost }

// Project selects and optionally aliases the final output columns.
type Project struct {
	Input         Node
	Items         []ast.ReturnItem
	Distinct      bool
	EstimatedCost CostEstimate
}

func (*Project) planNode() {}
func (p *Project) Cost() CostEstimate { return p.EstimatedCost }

// Sort orders the input by the given keys.
type Sort struct {
	Input         Node
	Keys          []ast.OrderItem
	EstimatedCost CostEstimate
}

func (*Sort) planNode() {}
func (s *Sort) Cost() CostEstimate { return s.EstimatedCost }

// Limit caps (and optionally offsets) the input row count.
type Limit struct {
	Input         Node
	N             int
	Offset        int
	EstimatedCost CostEstimate
}

func (*Limit) planNode() {}
func (l *Limit) Cost() CostEstimate { return l.EstimatedCost }

// Planner converts a resolver.ResolvedQuery into a logical plan tree.
type Planner struct {
	catalog *catalog.Catalog
}

// New creates a Planner over catalog c.
func New(c *catalog.Catalog) *Planner {
	return &Planner{catalog: c}
}

// Plan builds the logical plan for a resolved query.
func (p *Planner) Plan(rq *resolver.ResolvedQuery) (Node, *diag.Diagnostic) {
	q := rq.Query
	if len(q.Match.Paths) == 0 {
		return nil, diag.New(diag.EmptyTraversal, "MATCH clause has no path patterns")
	}

	var root Node
	for i, path := range q.Match.Paths {
		node, err := p.planPath(path)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			root = node
			continue
		}
		root = &Join{
			Left: root, Right: node, Kind: InnerJoin,
			EstimatedCost: combineCost(root.Cost(), node.Cost()),
		}
	}

	if q.Where != nil {
		root = &Filter{Input: root, Predicate: q.Where.Condition, EstimatedCost: root.Cost()}
	}

	root = &Project{Input: root, Items: q.Return.Items, Distinct: q.Return.Distinct, EstimatedCost: root.Cost()}

	if len(q.Return.OrderBy) > 0 {
		root = &Sort{Input: root, Keys: q.Return.OrderBy, EstimatedCost: root.Cost()}
	}

	if q.Return.Skip != nil || q.Return.Limit != nil {
		n := -1
		if q.Return.Limit != nil {
			n = *q.Return.Limit
		}
		offset := 0
		if q.Return.Skip != nil {
			offset = *q.Return.Skip
		}
		root = &Limit{Input: root, N: n, Offset: offset, EstimatedCost: root.Cost()}
	}

	return root, nil
}

func (p *Planner) planPath(path ast.PathExpression) (Node, *diag.Diagnostic) {
	if path.Kind == ast.ShortestPathCall || path.Kind == ast.AllShortestPathsCall {
		return p.planPathAlgorithm(path)
	}

	if hasVariableLength(path) {
		return p.planPathAlgorithm(path)
	}

	bindings := map[string]string{}
	cost := CostEstimate{Rows: 1, CPU: 1, IO: 1}
	for _, node := range path.Nodes {
		if node.Variable == nil {
			continue
		}
		if len(node.Labels) == 0 {
			bindings[node.Variable.Name] = node.Variable.Name
			continue
		}
		table, err := p.catalog.TableOf(node.Labels[0].Name)
		if err != nil {
			return nil, err
		}
		bindings[node.Variable.Name] = table.Name
		cost.Rows *= selectivityAdjustedRows(table.RowEstimate, node.Properties)
	}

	return &GraphMatch{Path: path, Bindings: bindings, EstimatedCost: cost}, nil
}

func hasVariableLength(path ast.PathExpression) bool {
	for _, rel := range path.Relationships {
		if rel.Length != nil {
			return true
		}
	}
	return false
}

func (p *Planner) planPathAlgorithm(path ast.PathExpression) (Node, *diag.Diagnostic) {
	if len(path.Nodes) < 2 || len(path.Relationships) != 1 {
		return nil, diag.New(diag.UnrepresentableConstruct, "path algorithm requires exactly one relationship between a source and target node")
	}
	source := variableNameOf(path.Nodes[0], "src")
	target := variableNameOf(path.Nodes[len(path.Nodes)-1], "dst")
	rel := path.Relationships[0]

	relType := ""
	if rel.Type != nil {
		relType = rel.Type.Name
	}

	cost := CostEstimate{Rows: 100, CPU: 10, IO: 10}

	switch path.Kind {
	case ast.ShortestPathCall:
		var maxLen *int
		if rel.Length != nil {
			maxLen = rel.Length.Max
		}
		return &ShortestPath{
			Source: source, Target: target, RelType: relType, Direction: rel.Direction,
			Constraints:   PathConstraint{MaxLength: maxLen, Bidirectional: rel.Direction == ast.Both},
			EstimatedCost: cost,
		}, nil
	case ast.AllShortestPathsCall:
		var min, max *int
		if rel.Length != nil {
			min, max = rel.Length.Min, rel.Length.Max
		}
		return &AllPaths{
			Source: source, Target: target, RelType: relType, Direction: rel.Direction,
			Min: min, Max: max, AllShortest: true, EstimatedCost: cost,
		}, nil
	default:
		min := 1
		if rel.Length != nil && rel.Length.Min != nil {
			min = *rel.Length.Min
		}
		var maxPtr *int
		if rel.Length != nil {
			maxPtr = rel.Length.Max
		}
		return &AllPaths{
			Source: source, Target: target, RelType: relType, Direction: rel.Direction,
			Min: &min, Max: maxPtr, EstimatedCost: cost,
		}, nil
	}
}

func variableNameOf(n ast.NodePattern, fallback string) string {
	if n.Variable != nil {
		return n.Variable.Name
	}
	return fallback
}

func selectivityAdjustedRows(base int64, props map[string]ast.Literal) float64 {
	rows := float64(base)
	if rows == 0 {
		rows = 1000
	}
	for range props {
		rows *= 0.1 // equality selectivity, per spec.md §4.6
	}
	if len(props) == 0 {
		rows *= 0.5 // unknown selectivity
	}
	return rows
}

func combineCost(a, b CostEstimate) CostEstimate {
	return CostEstimate{Rows: a.Rows * b.Rows, CPU: a.CPU + b.CPU, IO: a.IO + b.IO}
}
