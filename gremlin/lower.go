package gremlin

import (
	"fmt"

	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/diag"
)

// IDProperty is the reserved property name a lowered id filter binds to.
// The resolver skips its property check for it, and the emitter maps it
// directly to a label's catalog.Table.IDColumn rather than looking it up
// in catalog.Label.Props.
const IDProperty = "id"

var predicateOps = map[string]string{
	"gt": ">", "gte": ">=", "lt": "<", "lte": "<=", "eq": "=", "neq": "<>",
}

type chainLink struct {
	source string
	rel    ast.RelationshipPattern
	target string
}

// context mirrors the original translator's TranslationContext: it
// accumulates state during a single left-to-right pass over the step
// chain before the Cypher AST is assembled.
type context struct {
	nodeCounter int
	currentVar  string
	nodeLabels  map[string]string
	filters     []ast.Expr
	chain       []chainLink
	projection  *ProjectionStep
	limit       *int
	orderProp   string
	orderDesc   bool
	hasOrder    bool
	dedup       bool
	count       bool
}

func newContext() *context {
	return &context{nodeLabels: map[string]string{}}
}

func (c *context) newVariable() string {
	v := fmt.Sprintf("v%d", c.nodeCounter)
	c.nodeCounter++
	c.currentVar = v
	return v
}

func (c *context) current() string {
	if c.currentVar == "" {
		return c.newVariable()
	}
	return c.currentVar
}

// Lower converts a parsed Traversal into the shared Cypher ast.Query tree.
func Lower(t *Traversal) (*ast.Query, *diag.Diagnostic) {
	if len(t.Steps) == 0 {
		return nil, diag.New(diag.UnsupportedStart, "empty Gremlin traversal")
	}

	first := t.Steps[0]
	vstep, ok := first.(VertexStep)
	if !ok {
		if _, isEdge := first.(EdgeStep); isEdge {
			return nil, diag.New(diag.UnsupportedStart, "edge starting point E() not supported; start with V() instead")
		}
		return nil, diag.New(diag.UnsupportedStart, "traversal must start with V()")
	}

	ctx := newContext()
	initial := ctx.newVariable()

	var idFilter ast.Expr
	if len(vstep.IDs) > 0 {
		idFilter = buildIDFilter(initial, vstep.IDs, vstep.Span)
		ctx.filters = append(ctx.filters, idFilter)
	}

	for i := 1; i < len(t.Steps); i++ {
		step := t.Steps[i]
		switch s := step.(type) {
		case VertexStep:
			return nil, diag.New(diag.UnsupportedPattern, "multiple V() steps not supported; use a single starting point").WithSpan(s.Span)
		case EdgeStep:
			return nil, diag.New(diag.UnsupportedStart, "edge step E() mid-traversal not supported").WithSpan(s.Span)
		case FilterStep:
			if err := ctx.applyFilter(s); err != nil {
				return nil, err
			}
		case TraversalStep:
			if err := ctx.applyTraversal(s); err != nil {
				return nil, err
			}
		case ProjectionStep:
			if ctx.projection != nil {
				return nil, diag.New(diag.UnsupportedPattern, "multiple projection steps not supported").WithSpan(s.Span)
			}
			sc := s
			ctx.projection = &sc
		case LimitStep:
			if ctx.limit != nil {
				return nil, diag.New(diag.UnsupportedPattern, "multiple limit() steps not supported").WithSpan(s.Span)
			}
			n := s.Count
			ctx.limit = &n
		case OrderStep:
			if ctx.hasOrder {
				return nil, diag.New(diag.UnsupportedPattern, "multiple order() steps not supported").WithSpan(s.Span)
			}
			ctx.hasOrder = true
			// A following by(...) modulator, if present, refines this.
			if i+1 < len(t.Steps) {
				if by, ok := t.Steps[i+1].(byModulator); ok {
					applyByModulator(ctx, by)
					i++
				}
			}
		case byModulator:
			// A stray by() with no preceding order() — per original
			// semantics this is simply dropped.
		case CountStep:
			ctx.count = true
		case DedupStep:
			ctx.dedup = true
		default:
			return nil, diag.New(diag.UnsupportedPattern, "unsupported Gremlin step")
		}
	}

	match := ctx.buildMatchClause()
	where := ctx.buildWhereClause()
	ret, err := ctx.buildReturnClause()
	if err != nil {
		return nil, err
	}

	return &ast.Query{Match: match, Where: where, Return: ret}, nil
}

func applyByModulator(ctx *context, by byModulator) {
	if len(by.args) == 0 {
		return
	}
	if prop, ok := by.args[0].(string); ok {
		ctx.orderProp = prop
	}
	if len(by.args) > 1 {
		if dir, ok := by.args[1].(string); ok && dir == "desc" {
			ctx.orderDesc = true
		}
	}
}

func buildIDFilter(variable string, ids []string, span diag.Span) ast.Expr {
	prop := ast.PropertyExpr{Var: variable, Name: IDProperty, Span: span}
	if len(ids) == 1 {
		return ast.Comparison{
			Op:   "=",
			Left: prop,
			Right: ast.LiteralExpr{Literal: ast.Literal{Value: ids[0], Kind: ast.KindString, Span: span}},
			Span: span,
		}
	}
	var operands []ast.Expr
	for _, id := range ids {
		operands = append(operands, ast.Comparison{
			Op:   "=",
			Left: prop,
			Right: ast.LiteralExpr{Literal: ast.Literal{Value: id, Kind: ast.KindString, Span: span}},
			Span: span,
		})
	}
	return ast.Logical{Op: ast.LOr, Operands: operands, Span: span}
}

func (c *context) applyFilter(s FilterStep) *diag.Diagnostic {
	cur := c.current()

	switch s.FilterType {
	case "hasLabel":
		if s.Value == nil || s.Value.Kind != KindString {
			return diag.New(diag.WrongArgCount, "hasLabel requires a string label argument").WithSpan(s.Span)
		}
		if _, exists := c.nodeLabels[cur]; exists {
			return diag.New(diag.UnsupportedMultiLabel, "multiple labels on node %q not supported", cur).WithSpan(s.Span)
		}
		c.nodeLabels[cur] = s.Value.Raw.(string)
		return nil

	case "has":
		prop := s.Property
		if s.Predicate != nil {
			op, ok := predicateOps[s.Predicate.Op]
			if !ok {
				return diag.New(diag.UnsupportedPattern, "predicate operator %q not representable as a comparison", s.Predicate.Op).WithSpan(s.Span)
			}
			c.filters = append(c.filters, ast.Comparison{
				Op:    op,
				Left:  ast.PropertyExpr{Var: cur, Name: prop, Span: s.Span},
				Right: valueToExpr(s.Predicate.Value, s.Span),
				Span:  s.Span,
			})
			return nil
		}
		if s.Value != nil {
			c.filters = append(c.filters, ast.Comparison{
				Op:    "=",
				Left:  ast.PropertyExpr{Var: cur, Name: prop, Span: s.Span},
				Right: valueToExpr(*s.Value, s.Span),
				Span:  s.Span,
			})
			return nil
		}
		// has('prop') with no value: existence check.
		c.filters = append(c.filters, ast.FunctionExpr{
			Name: "exists",
			Args: []ast.Expr{ast.PropertyExpr{Var: cur, Name: prop, Span: s.Span}},
			Span: s.Span,
		})
		return nil

	default: // hasId, hasKey, hasValue
		return diag.New(diag.UnsupportedPattern, "filter predicate %q not supported; supported: hasLabel, has", s.FilterType).WithSpan(s.Span)
	}
}

func valueToExpr(v Value, span diag.Span) ast.Expr {
	switch v.Kind {
	case KindString:
		return ast.LiteralExpr{Literal: ast.Literal{Value: v.Raw, Kind: ast.KindString, Span: span}}
	case KindBool:
		return ast.LiteralExpr{Literal: ast.Literal{Value: v.Raw, Kind: ast.KindBool, Span: span}}
	case KindNumber:
		return ast.LiteralExpr{Literal: ast.Literal{Value: v.Raw, Kind: ast.KindNumber, Span: span}}
	default:
		return ast.LiteralExpr{Literal: ast.Literal{Kind: ast.KindNull, Span: span}}
	}
}

func (c *context) applyTraversal(s TraversalStep) *diag.Diagnostic {
	if s.TraversalType != "vertex" || (s.Direction != "out" && s.Direction != "in" && s.Direction != "both") {
		return diag.New(diag.UnsupportedTraversalDirection, "traversal %q not supported; supported: out, in, both", s.Direction).WithSpan(s.Span)
	}

	source := c.current()

	dirMap := map[string]ast.Direction{"out": ast.Out, "in": ast.In, "both": ast.Both}
	var relType *ast.Identifier
	if s.EdgeLabel != "" {
		relType = &ast.Identifier{Name: s.EdgeLabel, Span: s.Span}
	}
	rel := ast.RelationshipPattern{Type: relType, Direction: dirMap[s.Direction], Span: s.Span}

	target := c.newVariable()
	c.chain = append(c.chain, chainLink{source: source, rel: rel, target: target})
	return nil
}

func (c *context) buildMatchClause() ast.MatchClause {
	if len(c.chain) == 0 {
		v := c.current()
		node := ast.NodePattern{Variable: &ast.Identifier{Name: v}, Labels: labelsFor(c, v)}
		path, _ := ast.NewPathExpression([]ast.NodePattern{node}, nil, diag.Span{})
		return ast.MatchClause{Paths: []ast.PathExpression{*path}}
	}

	var nodes []ast.NodePattern
	var rels []ast.RelationshipPattern

	firstVar := "v0"
	nodes = append(nodes, ast.NodePattern{Variable: &ast.Identifier{Name: firstVar}, Labels: labelsFor(c, firstVar)})

	for _, link := range c.chain {
		rels = append(rels, link.rel)
		nodes = append(nodes, ast.NodePattern{Variable: &ast.Identifier{Name: link.target}, Labels: labelsFor(c, link.target)})
	}

	path, _ := ast.NewPathExpression(nodes, rels, diag.Span{})
	return ast.MatchClause{Paths: []ast.PathExpression{*path}}
}

func labelsFor(c *context, variable string) []ast.Identifier {
	if label, ok := c.nodeLabels[variable]; ok {
		return []ast.Identifier{{Name: label}}
	}
	return nil
}

func (c *context) buildWhereClause() *ast.WhereClause {
	if len(c.filters) == 0 {
		return nil
	}
	if len(c.filters) == 1 {
		return &ast.WhereClause{Condition: c.filters[0]}
	}
	return &ast.WhereClause{Condition: ast.Logical{Op: ast.LAnd, Operands: c.filters}}
}

func (c *context) buildReturnClause() (ast.ReturnClause, *diag.Diagnostic) {
	cur := c.current()
	var items []ast.ReturnItem

	switch {
	case c.count:
		items = append(items, ast.ReturnItem{Expr: ast.FunctionExpr{
			Name: "count",
			Args: []ast.Expr{ast.IdentifierExpr{Name: cur}},
		}})
	case c.projection != nil:
		if c.projection.ProjectionType != "values" {
			return ast.ReturnClause{}, diag.New(diag.UnsupportedProjectionType,
				"projection type %q not supported; supported: values", c.projection.ProjectionType).WithSpan(c.projection.Span)
		}
		for _, prop := range c.projection.PropertyNames {
			items = append(items, ast.ReturnItem{Expr: ast.PropertyExpr{Var: cur, Name: prop}})
		}
		if len(items) == 0 {
			items = append(items, ast.ReturnItem{Expr: ast.IdentifierExpr{Name: cur}})
		}
	default:
		items = append(items, ast.ReturnItem{Expr: ast.IdentifierExpr{Name: cur}})
	}

	var orderBy []ast.OrderItem
	if c.hasOrder {
		dir := ast.Asc
		if c.orderDesc {
			dir = ast.Desc
		}
		var expr ast.Expr
		if c.orderProp != "" {
			expr = ast.PropertyExpr{Var: cur, Name: c.orderProp}
		} else {
			expr = ast.IdentifierExpr{Name: cur}
		}
		orderBy = append(orderBy, ast.OrderItem{Expr: expr, Direction: dir})
	}

	return ast.ReturnClause{
		Items:    items,
		Distinct: c.dedup,
		OrderBy:  orderBy,
		Limit:    c.limit,
	}, nil
}

// Translate parses and lowers Gremlin source in one call.
func Translate(source string) (*ast.Query, *diag.Diagnostic) {
	traversal, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return Lower(traversal)
}
