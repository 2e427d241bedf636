// Package optimizer rewrites a logical plan.Node tree with an ordered,
// fixpoint-iterated battery of rules, mirroring the teacher's
// statement-dispatch execution engine generalized from AQL statements to
// plan rewrite rules.
package optimizer

import (
	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/diag"
	"github.com/flanksource/yellowstone-kql/plan"
)

// MaxIterations caps the fixpoint loop per spec.md §4.7 ("hard cap on
// iterations, e.g. 32").
const MaxIterations = 32

// Optimizer applies the rule pipeline to a plan tree. It needs read-only
// catalog access for the TimeRange and IndexHint rules, which must know
// which column is a table's time column / indexed id column.
type Optimizer struct {
	catalog       *catalog.Catalog
	maxIterations int
}

// New creates an Optimizer over catalog c, capped at MaxIterations
// fixpoint passes.
func New(c *catalog.Catalog) *Optimizer {
	return &Optimizer{catalog: c, maxIterations: MaxIterations}
}

// WithMaxIterations overrides the fixpoint cap (e.g. from
// engine.Options.OptimizerIterationCap) and returns o for chaining.
// Non-positive values are ignored, leaving the MaxIterations default.
func (o *Optimizer) WithMaxIterations(n int) *Optimizer {
	if n > 0 {
		o.maxIterations = n
	}
	return o
}

type rule struct {
	name  string
	apply func(o *Optimizer, n plan.Node) (plan.Node, bool, *diag.Diagnostic)
}

// pipeline is the ordered rule list required by spec.md §4.7.
var pipeline = []rule{
	{"FilterPushdown", (*Optimizer).filterPushdown},
	{"PredicatePushdown", (*Optimizer).predicatePushdown},
	{"JoinOrder", (*Optimizer).joinOrder},
	{"TimeRange", (*Optimizer).timeRange},
	{"IndexHint", (*Optimizer).indexHint},
}

// Run applies every rule in order, repeating the whole pipeline until no
// rule reports a change or the iteration cap (MaxIterations unless
// overridden by WithMaxIterations) is reached. The last stable
// plan is returned either way.
func (o *Optimizer) Run(root plan.Node) (plan.Node, *diag.Diagnostic) {
	for i := 0; i < o.maxIterations; i++ {
		changedThisPass := false
		for _, r := range pipeline {
			next, changed, err := r.apply(o, root)
			if err != nil {
				return nil, diag.New(diag.OptimizerErr, "rule %s failed: %s", r.name, err.Message).WithSpan(diag.Span{})
			}
			if changed {
				root = next
				changedThisPass = true
			}
		}
		if !changedThisPass {
			break
		}
	}
	return root, nil
}

// children returns a node's direct plan-tree children, used by the
// generic post-order walkers below.
func children(n plan.Node) []plan.Node {
	switch v := n.(type) {
	case *plan.Filter:
		return []plan.Node{v.Input}
	case *plan.Project:
		return []plan.Node{v.Input}
	case *plan.Sort:
		return []plan.Node{v.Input}
	case *plan.Limit:
		return []plan.Node{v.Input}
	case *plan.Join:
		return []plan.Node{v.Left, v.Right}
	default:
		return nil
	}
}

// withChildren rebuilds n with its children replaced, preserving all
// other fields. Leaf nodes (Scan, GraphMatch, ShortestPath, AllPaths) are
// returned unchanged since they have no plan.Node children.
func withChildren(n plan.Node, newChildren []plan.Node) plan.Node {
	switch v := n.(type) {
	case *plan.Filter:
		c := *v
		c.Input = newChildren[0]
		return &c
	case *plan.Project:
		c := *v
		c.Input = newChildren[0]
		return &c
	case *plan.Sort:
		c := *v
		c.Input = newChildren[0]
		return &c
	case *plan.Limit:
		c := *v
		c.Input = newChildren[0]
		return &c
	case *plan.Join:
		c := *v
		c.Left, c.Right = newChildren[0], newChildren[1]
		return &c
	default:
		return n
	}
}

// postOrderRewrite applies f to every node bottom-up (children first),
// returning the rewritten tree and whether any application changed a
// node.
func postOrderRewrite(n plan.Node, f func(plan.Node) (plan.Node, bool)) (plan.Node, bool) {
	kids := children(n)
	if len(kids) > 0 {
		newKids := make([]plan.Node, len(kids))
		childChanged := false
		for i, k := range kids {
			rewritten, changed := postOrderRewrite(k, f)
			newKids[i] = rewritten
			childChanged = childChanged || changed
		}
		if childChanged {
			n = withChildren(n, newKids)
		}
		out, changed := f(n)
		return out, changed || childChanged
	}
	return f(n)
}

// splitConjuncts flattens a (possibly nested) AND expression into its
// leaf conjuncts.
func splitConjuncts(e ast.Expr) []ast.Expr {
	if logical, ok := e.(ast.Logical); ok && logical.Op == ast.LAnd {
		var out []ast.Expr
		for _, operand := range logical.Operands {
			out = append(out, splitConjuncts(operand)...)
		}
		return out
	}
	return []ast.Expr{e}
}

// combineConjuncts rebuilds an AND expression from a conjunct list,
// returning nil for an empty list or the bare expr for a single one.
func combineConjuncts(exprs []ast.Expr) ast.Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return ast.Logical{Op: ast.LAnd, Operands: exprs}
	}
}

// referencesOnly reports whether e references no variable other than v
// (conservatively true for predicates with no PropertyExpr/IdentifierExpr
// at all).
func referencesOnly(e ast.Expr, v string) bool {
	switch expr := e.(type) {
	case ast.PropertyExpr:
		return expr.Var == v
	case ast.IdentifierExpr:
		return expr.Name == v
	case ast.Comparison:
		return referencesOnly(expr.Left, v) && referencesOnly(expr.Right, v)
	case ast.Logical:
		for _, operand := range expr.Operands {
			if !referencesOnly(operand, v) {
				return false
			}
		}
		return true
	case ast.FunctionExpr:
		for _, arg := range expr.Args {
			if !referencesOnly(arg, v) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
