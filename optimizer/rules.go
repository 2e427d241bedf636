package optimizer

import (
	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/diag"
	"github.com/flanksource/yellowstone-kql/plan"
)

// filterPushdown pushes a Filter's predicate into the GraphMatch or Scan
// directly beneath it, removing the Filter node. It does not reorder
// across Limit or Sort, since those never appear as a Filter's direct
// child in plans this planner produces.
func (o *Optimizer) filterPushdown(n plan.Node) (plan.Node, bool, *diag.Diagnostic) {
	result, changed := postOrderRewrite(n, func(node plan.Node) (plan.Node, bool) {
		f, ok := node.(*plan.Filter)
		if !ok {
			return node, false
		}
		switch inner := f.Input.(type) {
		case *plan.GraphMatch:
			gm := *inner
			gm.Predicate = andExpr(gm.Predicate, f.Predicate)
			return &gm, true
		case *plan.Scan:
			sc := *inner
			sc.Predicate = andExpr(sc.Predicate, f.Predicate)
			return &sc, true
		default:
			return node, false
		}
	})
	return result, changed, nil
}

// predicatePushdown splits a conjunction above a Join and routes each
// conjunct to whichever side's bound variables it references alone,
// leaving any conjunct that spans both sides as a residual Filter above
// the Join.
func (o *Optimizer) predicatePushdown(n plan.Node) (plan.Node, bool, *diag.Diagnostic) {
	result, changed := postOrderRewrite(n, func(node plan.Node) (plan.Node, bool) {
		f, ok := node.(*plan.Filter)
		if !ok {
			return node, false
		}
		join, ok := f.Input.(*plan.Join)
		if !ok {
			return node, false
		}
		conjuncts := splitConjuncts(f.Predicate)
		if len(conjuncts) <= 1 {
			return node, false
		}

		leftVars := boundVars(join.Left)
		rightVars := boundVars(join.Right)
		var toLeft, toRight, residual []ast.Expr
		for _, c := range conjuncts {
			refs := referencedVars(c)
			switch {
			case allIn(refs, leftVars):
				toLeft = append(toLeft, c)
			case allIn(refs, rightVars):
				toRight = append(toRight, c)
			default:
				residual = append(residual, c)
			}
		}
		if len(toLeft) == 0 && len(toRight) == 0 {
			return node, false
		}

		newJoin := *join
		if len(toLeft) > 0 {
			newJoin.Left = &plan.Filter{Input: join.Left, Predicate: combineConjuncts(toLeft), EstimatedCost: join.Left.Cost()}
		}
		if len(toRight) > 0 {
			newJoin.Right = &plan.Filter{Input: join.Right, Predicate: combineConjuncts(toRight), EstimatedCost: join.Right.Cost()}
		}
		if len(residual) == 0 {
			return &newJoin, true
		}
		return &plan.Filter{Input: &newJoin, Predicate: combineConjuncts(residual), EstimatedCost: f.EstimatedCost}, true
	})
	return result, changed, nil
}

// joinOrder places the smaller estimated-row side on the left (build
// side) of a commutative Inner join.
func (o *Optimizer) joinOrder(n plan.Node) (plan.Node, bool, *diag.Diagnostic) {
	result, changed := postOrderRewrite(n, func(node plan.Node) (plan.Node, bool) {
		j, ok := node.(*plan.Join)
		if !ok || j.Kind != plan.InnerJoin {
			return node, false
		}
		if j.Right.Cost().Rows < j.Left.Cost().Rows {
			nj := *j
			nj.Left, nj.Right = j.Right, j.Left
			return &nj, true
		}
		return node, false
	})
	return result, changed, nil
}

// scanLeaf is the common shape timeRange and indexHint rewrite: a leaf
// plan node with a predicate and a way to look up the catalog label a
// given variable is bound to.
type scanLeaf struct {
	predicate ast.Expr
	labelOf   func(variable string) string
	rebuild   func(predicate ast.Expr, timeRange *plan.TimeRangeHint, indexHint string) plan.Node
	timeRange *plan.TimeRangeHint
	indexHint string
}

func asScanLeaf(node plan.Node) (scanLeaf, bool) {
	switch v := node.(type) {
	case *plan.GraphMatch:
		return scanLeaf{
			predicate: v.Predicate,
			labelOf:   func(variable string) string { return labelForVar(v.Path, variable) },
			rebuild: func(predicate ast.Expr, tr *plan.TimeRangeHint, idx string) plan.Node {
				ng := *v
				ng.Predicate, ng.TimeRange, ng.IndexHint = predicate, tr, idx
				return &ng
			},
			timeRange: v.TimeRange,
			indexHint: v.IndexHint,
		}, true
	case *plan.Scan:
		return scanLeaf{
			predicate: v.Predicate,
			labelOf:   func(variable string) string { return v.Label },
			rebuild: func(predicate ast.Expr, tr *plan.TimeRangeHint, idx string) plan.Node {
				ng := *v
				ng.Predicate, ng.TimeRange, ng.IndexHint = predicate, tr, idx
				return &ng
			},
			timeRange: v.TimeRange,
			indexHint: v.IndexHint,
		}, true
	default:
		return scanLeaf{}, false
	}
}

// timeRange lifts `property >= c1` and/or `property <= c2` conjuncts on
// a catalog-declared time column out of a leaf node's predicate and into
// a TimeRangeHint the emitter can surface earliest in the pipeline.
// Strict `>` / `<` bounds stay in the predicate.
func (o *Optimizer) timeRange(n plan.Node) (plan.Node, bool, *diag.Diagnostic) {
	result, changed := postOrderRewrite(n, func(node plan.Node) (plan.Node, bool) {
		leaf, ok := asScanLeaf(node)
		if !ok || leaf.predicate == nil || leaf.timeRange != nil {
			return node, false
		}

		var low, high ast.Expr
		var timeCol string
		var keep []ast.Expr

		for _, c := range splitConjuncts(leaf.predicate) {
			cmp, ok := c.(ast.Comparison)
			if !ok || !isRangeBound(cmp) {
				keep = append(keep, c)
				continue
			}
			prop, ok := cmp.Left.(ast.PropertyExpr)
			if !ok {
				keep = append(keep, c)
				continue
			}
			label := leaf.labelOf(prop.Var)
			if label == "" {
				keep = append(keep, c)
				continue
			}
			table, err := o.catalog.TableOf(label)
			if err != nil || table.TimeColumn == "" || table.TimeColumn != prop.Name {
				keep = append(keep, c)
				continue
			}
			switch cmp.Op {
			case ">=":
				low = cmp.Right
				timeCol = prop.Name
			case "<=":
				high = cmp.Right
				timeCol = prop.Name
			default:
				keep = append(keep, c)
			}
		}

		if low == nil && high == nil {
			return node, false
		}
		return leaf.rebuild(combineConjuncts(keep), &plan.TimeRangeHint{Column: timeCol, From: low, To: high}, leaf.indexHint), true
	})
	return result, changed, nil
}

// indexHint annotates a leaf node with a preferred index when a
// predicate conjunct is `v.pk = c` and pk is the table's id column.
func (o *Optimizer) indexHint(n plan.Node) (plan.Node, bool, *diag.Diagnostic) {
	result, changed := postOrderRewrite(n, func(node plan.Node) (plan.Node, bool) {
		leaf, ok := asScanLeaf(node)
		if !ok || leaf.predicate == nil || leaf.indexHint != "" {
			return node, false
		}
		for _, c := range splitConjuncts(leaf.predicate) {
			cmp, ok := c.(ast.Comparison)
			if !ok || !isSimpleEquality(cmp) {
				continue
			}
			prop, ok := cmp.Left.(ast.PropertyExpr)
			if !ok {
				continue
			}
			label := leaf.labelOf(prop.Var)
			if label == "" {
				continue
			}
			table, err := o.catalog.TableOf(label)
			if err != nil || table.IDColumn != prop.Name {
				continue
			}
			return leaf.rebuild(leaf.predicate, leaf.timeRange, prop.Name), true
		}
		return node, false
	})
	return result, changed, nil
}

func andExpr(existing, add ast.Expr) ast.Expr {
	if existing == nil {
		return add
	}
	if add == nil {
		return existing
	}
	return ast.Logical{Op: ast.LAnd, Operands: []ast.Expr{existing, add}}
}

func labelForVar(path ast.PathExpression, variable string) string {
	for _, node := range path.Nodes {
		if node.Variable != nil && node.Variable.Name == variable && len(node.Labels) > 0 {
			return node.Labels[0].Name
		}
	}
	return ""
}

func boundVars(n plan.Node) map[string]bool {
	vars := map[string]bool{}
	var walk func(plan.Node)
	walk = func(node plan.Node) {
		switch v := node.(type) {
		case *plan.GraphMatch:
			for k := range v.Bindings {
				vars[k] = true
			}
		case *plan.Scan:
			if v.Variable != "" {
				vars[v.Variable] = true
			}
		case *plan.Filter:
			walk(v.Input)
		case *plan.Project:
			walk(v.Input)
		case *plan.Sort:
			walk(v.Input)
		case *plan.Limit:
			walk(v.Input)
		case *plan.Join:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)
	return vars
}

func referencedVars(e ast.Expr) []string {
	switch expr := e.(type) {
	case ast.PropertyExpr:
		return []string{expr.Var}
	case ast.IdentifierExpr:
		return []string{expr.Name}
	case ast.Comparison:
		return append(referencedVars(expr.Left), referencedVars(expr.Right)...)
	case ast.Logical:
		var out []string
		for _, operand := range expr.Operands {
			out = append(out, referencedVars(operand)...)
		}
		return out
	case ast.FunctionExpr:
		var out []string
		for _, arg := range expr.Args {
			out = append(out, referencedVars(arg)...)
		}
		return out
	default:
		return nil
	}
}

func allIn(names []string, set map[string]bool) bool {
	for _, n := range names {
		if !set[n] {
			return false
		}
	}
	return true
}
