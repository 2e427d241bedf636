// Package resolver performs the single semantic pass over a parsed Cypher
// ast.Query: binding variables, and checking every label, relationship
// type, and property reference against the Schema Catalog. Its
// walk-and-check shape, and its habit of collecting every diagnostic
// before returning rather than failing on the first one, follows the
// teacher's AST coordinator/analyzer pair.
package resolver

import (
	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/diag"
	"github.com/flanksource/yellowstone-kql/gremlin"
)

// Binding is what the resolver learned about one bound variable: which
// labels (zero, one, or more via repeated MATCH) it carries.
type Binding struct {
	Labels []string
	Span   diag.Span
}

// ResolvedQuery is an ast.Query annotated with variable bindings. The
// planner consumes this instead of the raw AST so it never has to
// re-derive label information.
type ResolvedQuery struct {
	Query    *ast.Query
	Bindings map[string]Binding
}

// Resolver binds the query against a fixed Catalog.
type Resolver struct {
	catalog *catalog.Catalog
}

// New creates a Resolver over catalog c.
func New(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve walks q once, collecting every diagnostic rather than stopping
// at the first failure, and returns the bound query.
func (r *Resolver) Resolve(q *ast.Query) (*ResolvedQuery, diag.List) {
	var errs diag.List
	bindings := map[string]Binding{}

	for _, path := range q.Match.Paths {
		r.resolvePath(path, bindings, &errs)
	}

	if q.Where != nil {
		r.walkExpr(q.Where.Condition, bindings, &errs)
	}
	for _, item := range q.Return.Items {
		r.walkExpr(item.Expr, bindings, &errs)
	}
	for _, item := range q.Return.OrderBy {
		r.walkExpr(item.Expr, bindings, &errs)
	}

	errs.Sort()
	if len(errs) > 0 {
		return nil, errs
	}
	return &ResolvedQuery{Query: q, Bindings: bindings}, nil
}

func (r *Resolver) resolvePath(path ast.PathExpression, bindings map[string]Binding, errs *diag.List) {
	for _, node := range path.Nodes {
		r.resolveNode(node, bindings, errs)
	}
	for i, rel := range path.Relationships {
		r.resolveRelationship(rel, path.Nodes[i], path.Nodes[i+1], errs)
	}
}

func (r *Resolver) resolveNode(node ast.NodePattern, bindings map[string]Binding, errs *diag.List) {
	var labelNames []string
	for _, label := range node.Labels {
		labelNames = append(labelNames, label.Name)
		if _, ok := r.catalog.Label(label.Name); !ok {
			*errs = append(*errs, diag.New(diag.UnknownLabel, "unknown label %q", label.Name).WithSpan(label.Span))
		}
	}

	for prop := range node.Properties {
		if prop == gremlin.IDProperty {
			continue
		}
		r.checkProperty(labelNames, prop, node.Span, errs)
	}

	if node.Variable == nil {
		return
	}
	name := node.Variable.Name
	if existing, seen := bindings[name]; seen {
		if len(labelNames) > 0 {
			existing.Labels = append(existing.Labels, labelNames...)
			bindings[name] = existing
		}
		return
	}
	bindings[name] = Binding{Labels: labelNames, Span: node.Variable.Span}
}

func (r *Resolver) resolveRelationship(rel ast.RelationshipPattern, from, to ast.NodePattern, errs *diag.List) {
	if rel.Type == nil {
		return
	}
	meta, err := r.catalog.Relationship(rel.Type.Name)
	if err != nil {
		*errs = append(*errs, err.WithSpan(rel.Type.Span))
		return
	}

	fromLabels := labelSet(from.Labels)
	toLabels := labelSet(to.Labels)
	if len(fromLabels) == 0 || len(toLabels) == 0 {
		return // endpoint label is unconstrained; nothing to check
	}

	switch rel.Direction {
	case ast.Out:
		if !fromLabels[meta.FromLabel] || !toLabels[meta.ToLabel] {
			*errs = append(*errs, diag.New(diag.RelationshipArityMismatch,
				"relationship %q connects %s->%s, but pattern has %v->%v",
				rel.Type.Name, meta.FromLabel, meta.ToLabel, from.Labels, to.Labels).WithSpan(rel.Span))
		}
	case ast.In:
		if !fromLabels[meta.ToLabel] || !toLabels[meta.FromLabel] {
			*errs = append(*errs, diag.New(diag.RelationshipArityMismatch,
				"relationship %q connects %s->%s, but pattern has %v<-%v",
				rel.Type.Name, meta.FromLabel, meta.ToLabel, from.Labels, to.Labels).WithSpan(rel.Span))
		}
	default: // Both: either orientation is acceptable
		matchesForward := fromLabels[meta.FromLabel] && toLabels[meta.ToLabel]
		matchesReverse := fromLabels[meta.ToLabel] && toLabels[meta.FromLabel]
		if !matchesForward && !matchesReverse {
			*errs = append(*errs, diag.New(diag.RelationshipArityMismatch,
				"relationship %q does not connect labels %v--%v", rel.Type.Name, from.Labels, to.Labels).WithSpan(rel.Span))
		}
	}
}

func labelSet(labels []ast.Identifier) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l.Name] = true
	}
	return set
}

func (r *Resolver) checkProperty(labels []string, prop string, span diag.Span, errs *diag.List) {
	if len(labels) == 0 {
		return // no label to check the property against
	}
	for _, label := range labels {
		if _, _, err := r.catalog.ColumnOf(label, prop); err != nil {
			*errs = append(*errs, err.WithSpan(span))
		}
	}
}

func (r *Resolver) walkExpr(e ast.Expr, bindings map[string]Binding, errs *diag.List) {
	if e == nil {
		return
	}
	switch expr := e.(type) {
	case ast.Comparison:
		r.walkExpr(expr.Left, bindings, errs)
		r.walkExpr(expr.Right, bindings, errs)
	case ast.Logical:
		for _, operand := range expr.Operands {
			r.walkExpr(operand, bindings, errs)
		}
	case ast.PropertyExpr:
		binding, ok := bindings[expr.Var]
		if !ok {
			*errs = append(*errs, diag.New(diag.UnboundVariable, "variable %q is not bound in any MATCH pattern", expr.Var).WithSpan(expr.Span))
			return
		}
		if expr.Name != gremlin.IDProperty {
			r.checkProperty(binding.Labels, expr.Name, expr.Span, errs)
		}
	case ast.IdentifierExpr:
		if _, ok := bindings[expr.Name]; !ok {
			*errs = append(*errs, diag.New(diag.UnboundVariable, "variable %q is not bound in any MATCH pattern", expr.Name).WithSpan(expr.Span))
		}
	case ast.FunctionExpr:
		for _, arg := range expr.Args {
			r.walkExpr(arg, bindings, errs)
		}
	case ast.LiteralExpr:
		// nothing to check
	}
}
