// Package emit walks an optimized plan.Node tree and assembles the final
// KQL pipeline string, the last stage of the pipeline named in spec.md's
// overview. Dispatch is a type switch over plan.Node the same way the
// teacher's query engine dispatches over statement type, generalized from
// one flat statement list to a tree walk.
package emit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/diag"
	"github.com/flanksource/yellowstone-kql/gremlin"
	"github.com/flanksource/yellowstone-kql/pathalgo"
	"github.com/flanksource/yellowstone-kql/plan"
)

// kqlKeywords need bracket-quoting when they collide with a table or
// column identifier.
var kqlKeywords = map[string]bool{
	"where": true, "project": true, "extend": true, "summarize": true,
	"join": true, "sort": true, "limit": true, "take": true, "order": true,
	"by": true, "let": true, "union": true, "distinct": true, "count": true,
	"top": true, "print": true, "render": true, "parse": true, "evaluate": true,
}

// functionMap carries the function-name rewrites spec.md §4.8 requires.
var functionMap = map[string]string{
	"SIZE":   "array_length",
	"LENGTH": "array_length",
	"COUNT":  "array_length",
	"UPPER":  "toupper",
	"LOWER":  "tolower",
}

// Emitter renders an optimized plan into KQL. It needs read-only catalog
// access to translate a graph property name to its backend column.
type Emitter struct {
	catalog *catalog.Catalog
}

// New creates an Emitter over catalog c.
func New(c *catalog.Catalog) *Emitter {
	return &Emitter{catalog: c}
}

// Emit renders root as a complete KQL pipeline. optional marks that the
// originating MATCH clause was OPTIONAL MATCH; per the resolved "OPTIONAL
// MATCH KQL spelling" decision, KQL has no direct equivalent, so the
// emitter prefixes the pipeline with a `// optional` comment and always
// attaches a Warning diagnostic rather than silently dropping the
// semantics.
func (e *Emitter) Emit(root plan.Node, optional bool) (string, diag.List) {
	varLabels := map[string]string{}
	collectVarLabels(root, varLabels)
	ctx := &emitCtx{catalog: e.catalog, varLabels: varLabels}

	body, err := ctx.emitNode(root)
	if err != nil {
		return "", diag.List{err}
	}

	warnings := ctx.warnings
	if optional {
		warnings = append(warnings, diag.New(diag.UnrepresentableConstruct,
			"OPTIONAL MATCH has no direct KQL equivalent; emitted as a best-effort non-optional match").
			WithFix("review results for rows a true OPTIONAL MATCH would have null-padded in").
			WithSeverity(diag.SeverityWarning))
		body = "// optional\n" + body
	}
	warnings.Sort()
	return body, warnings
}

// emitCtx carries the per-call state a recursive emit pass needs: the
// catalog (for property-to-column resolution), the variable-to-label
// bindings collected from the plan tree's leaves, and the warning
// diagnostics accumulated along the way.
type emitCtx struct {
	catalog   *catalog.Catalog
	varLabels map[string]string
	warnings  diag.List
}

func (c *emitCtx) emitNode(n plan.Node) (string, *diag.Diagnostic) {
	switch v := n.(type) {
	case *plan.Scan:
		return c.emitScan(v)
	case *plan.GraphMatch:
		return c.emitGraphMatch(v)
	case *plan.ShortestPath:
		return c.emitShortestPath(v)
	case *plan.AllPaths:
		return c.emitAllPaths(v)
	case *plan.Join:
		return c.emitJoin(v)
	case *plan.Filter:
		return c.emitFilter(v)
	case *plan.Project:
		return c.emitProject(v)
	case *plan.Sort:
		return c.emitSort(v)
	case *plan.Limit:
		return c.emitLimit(v)
	default:
		return "", diag.New(diag.UnrepresentableConstruct, "plan node %T has no KQL rendering", n)
	}
}

// collectVarLabels walks the plan tree gathering every pattern variable's
// bound label, so PropertyExpr rendering can resolve the backend column
// through the catalog instead of emitting the raw graph property name.
func collectVarLabels(n plan.Node, out map[string]string) {
	switch v := n.(type) {
	case *plan.Scan:
		if v.Variable != "" && v.Label != "" {
			out[v.Variable] = v.Label
		}
	case *plan.GraphMatch:
		for _, node := range v.Path.Nodes {
			if node.Variable != nil && len(node.Labels) > 0 {
				out[node.Variable.Name] = node.Labels[0].Name
			}
		}
	case *plan.Filter:
		collectVarLabels(v.Input, out)
	case *plan.Project:
		collectVarLabels(v.Input, out)
	case *plan.Sort:
		collectVarLabels(v.Input, out)
	case *plan.Limit:
		collectVarLabels(v.Input, out)
	case *plan.Join:
		collectVarLabels(v.Left, out)
		collectVarLabels(v.Right, out)
	}
}

func (c *emitCtx) columnFor(variable, prop string) string {
	label, ok := c.varLabels[variable]
	if prop == gremlin.IDProperty {
		if ok {
			if t, err := c.catalog.TableOf(label); err == nil && t.IDColumn != "" {
				return t.IDColumn
			}
		}
		return prop
	}
	if !ok {
		return prop
	}
	col, _, err := c.catalog.ColumnOf(label, prop)
	if err != nil {
		return prop
	}
	return col
}

func quoteIdent(name string) string {
	if kqlKeywords[strings.ToLower(name)] {
		return "['" + name + "']"
	}
	return name
}

// --- leaves ---

func (c *emitCtx) emitScan(s *plan.Scan) (string, *diag.Diagnostic) {
	if s.Table == "" {
		return "", diag.New(diag.UnrepresentableConstruct, "node pattern %q has no resolved label to scan a table for", s.Variable)
	}

	var b strings.Builder
	b.WriteString(quoteIdent(s.Table))

	if s.TimeRange != nil {
		clause, err := c.timeRangeClause(s.TimeRange)
		if err != nil {
			return "", err
		}
		b.WriteString("\n| where " + clause)
	}
	if s.Predicate != nil {
		expr, err := c.emitExpr(s.Predicate)
		if err != nil {
			return "", err
		}
		b.WriteString("\n| where " + expr)
	}
	if s.IndexHint != "" {
		b.WriteString(fmt.Sprintf("\n// index_hint: %s", s.IndexHint))
	}
	if len(s.ProjectedColumns) > 0 {
		b.WriteString("\n| project " + strings.Join(s.ProjectedColumns, ", "))
	}
	return b.String(), nil
}

func (c *emitCtx) timeRangeClause(tr *plan.TimeRangeHint) (string, *diag.Diagnostic) {
	var parts []string
	if tr.From != nil {
		v, err := c.emitExpr(tr.From)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s >= %s", tr.Column, v))
	}
	if tr.To != nil {
		v, err := c.emitExpr(tr.To)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s <= %s", tr.Column, v))
	}
	return strings.Join(parts, " and "), nil
}

func (c *emitCtx) emitGraphMatch(g *plan.GraphMatch) (string, *diag.Diagnostic) {
	pattern, err := renderPathPattern(g.Path)
	if err != nil {
		return "", err
	}

	var tables []string
	seen := map[string]bool{}
	for _, table := range g.Bindings {
		if table == "" || seen[table] {
			continue
		}
		seen[table] = true
		tables = append(tables, quoteIdent(table))
	}
	sort.Strings(tables)

	var b strings.Builder
	b.WriteString("make-graph " + renderEdgeSpec(g.Path) + " with " + strings.Join(tables, ", "))
	b.WriteString("\n| graph-match " + pattern)

	var preds []string
	if g.TimeRange != nil {
		clause, err := c.timeRangeClause(g.TimeRange)
		if err != nil {
			return "", err
		}
		preds = append(preds, clause)
	}
	if g.Predicate != nil {
		expr, err := c.emitExpr(g.Predicate)
		if err != nil {
			return "", err
		}
		preds = append(preds, expr)
	}
	if len(preds) > 0 {
		b.WriteString("\n  where " + strings.Join(preds, " and "))
	}
	if g.IndexHint != "" {
		b.WriteString(fmt.Sprintf("\n// index_hint: %s", g.IndexHint))
	}
	return b.String(), nil
}

func renderEdgeSpec(path ast.PathExpression) string {
	seen := map[string]bool{}
	var types []string
	for _, rel := range path.Relationships {
		if rel.Type == nil || seen[rel.Type.Name] {
			continue
		}
		seen[rel.Type.Name] = true
		types = append(types, rel.Type.Name)
	}
	if len(types) == 0 {
		return "edges"
	}
	return strings.Join(types, ", ")
}

func renderPathPattern(path ast.PathExpression) (string, *diag.Diagnostic) {
	var b strings.Builder
	for i, node := range path.Nodes {
		b.WriteString(renderNodePattern(node))
		if i < len(path.Relationships) {
			seg, err := renderRelPattern(path.Relationships[i])
			if err != nil {
				return "", err
			}
			b.WriteString(seg)
		}
	}
	return b.String(), nil
}

func renderNodePattern(n ast.NodePattern) string {
	var b strings.Builder
	b.WriteString("(")
	if n.Variable != nil {
		b.WriteString(n.Variable.Name)
	}
	for _, l := range n.Labels {
		b.WriteString(":" + l.Name)
	}
	if len(n.Properties) > 0 {
		keys := make([]string, 0, len(n.Properties))
		for k := range n.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, encodeLiteral(n.Properties[k]))
		}
		b.WriteString("{" + strings.Join(parts, ", ") + "}")
	}
	b.WriteString(")")
	return b.String()
}

func renderRelPattern(r ast.RelationshipPattern) (string, *diag.Diagnostic) {
	inner := ""
	if r.Variable != nil {
		inner += r.Variable.Name
	}
	if r.Type != nil {
		inner += ":" + r.Type.Name
	}
	if r.Length != nil {
		inner += "*" + lengthStr(r.Length)
	}
	body := "-[" + inner + "]-"
	switch r.Direction {
	case ast.Out:
		return body + ">", nil
	case ast.In:
		return "<" + body, nil
	default:
		return body, nil
	}
}

func lengthStr(l *ast.PathLength) string {
	switch {
	case l.Min != nil && l.Max != nil:
		if *l.Min == *l.Max {
			return strconv.Itoa(*l.Min)
		}
		return fmt.Sprintf("%d..%d", *l.Min, *l.Max)
	case l.Min != nil:
		return fmt.Sprintf("%d..", *l.Min)
	case l.Max != nil:
		return fmt.Sprintf("..%d", *l.Max)
	default:
		return ""
	}
}

func (c *emitCtx) emitShortestPath(s *plan.ShortestPath) (string, *diag.Diagnostic) {
	if s.Constraints.Bidirectional {
		c.warnings = append(c.warnings, diag.New(diag.UnrepresentableConstruct,
			"bidirectional shortestPath search is approximated with a graph-shortest-paths(bidirectional) prefix; confirm backend support before relying on it").
			WithFix("inspect the emitted query against the target cluster's graph-shortest-paths support").
			WithSeverity(diag.SeverityWarning))
	}
	return pathalgo.ShortestPath(s), nil
}

func (c *emitCtx) emitAllPaths(a *plan.AllPaths) (string, *diag.Diagnostic) {
	if a.CycleDetect {
		c.warnings = append(c.warnings, diag.New(diag.UnrepresentableConstruct,
			"cycle detection is emitted as `where not(has_duplicates(path_nodes))`, a synthesized predicate not guaranteed to match the backend's actual path-array column name").
			WithFix("confirm the backend exposes a path_nodes dynamic column before relying on this filter").
			WithSeverity(diag.SeverityWarning))
	}
	return pathalgo.AllPaths(a), nil
}

// --- combinators ---

func (c *emitCtx) emitFilter(f *plan.Filter) (string, *diag.Diagnostic) {
	inner, err := c.emitNode(f.Input)
	if err != nil {
		return "", err
	}
	expr, err := c.emitExpr(f.Predicate)
	if err != nil {
		return "", err
	}
	return inner + "\n| where " + expr, nil
}

func (c *emitCtx) emitProject(p *plan.Project) (string, *diag.Diagnostic) {
	inner, err := c.emitNode(p.Input)
	if err != nil {
		return "", err
	}
	items := make([]string, len(p.Items))
	for i, item := range p.Items {
		s, err := c.emitExpr(item.Expr)
		if err != nil {
			return "", err
		}
		if item.Alias != nil {
			s += " as " + item.Alias.Name
		}
		items[i] = s
	}
	verb := "project"
	if p.Distinct {
		verb = "distinct project"
	}
	return inner + "\n| " + verb + " " + strings.Join(items, ", "), nil
}

func (c *emitCtx) emitSort(s *plan.Sort) (string, *diag.Diagnostic) {
	inner, err := c.emitNode(s.Input)
	if err != nil {
		return "", err
	}
	keys := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		expr, err := c.emitExpr(k.Expr)
		if err != nil {
			return "", err
		}
		dir := "asc"
		if k.Direction == ast.Desc {
			dir = "desc"
		}
		keys[i] = expr + " " + dir
	}
	return inner + "\n| sort by " + strings.Join(keys, ", "), nil
}

func (c *emitCtx) emitLimit(l *plan.Limit) (string, *diag.Diagnostic) {
	inner, err := c.emitNode(l.Input)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(inner)
	if l.Offset > 0 {
		b.WriteString(fmt.Sprintf("\n| offset %d", l.Offset))
	}
	if l.N >= 0 {
		b.WriteString(fmt.Sprintf("\n| limit %d", l.N))
	}
	return b.String(), nil
}

func (c *emitCtx) emitJoin(j *plan.Join) (string, *diag.Diagnostic) {
	left, err := c.emitNode(j.Left)
	if err != nil {
		return "", err
	}
	right, err := c.emitNode(j.Right)
	if err != nil {
		return "", err
	}
	kind := "inner"
	if j.Kind == plan.LeftOuterJoin {
		kind = "leftouter"
	}
	if j.On != nil {
		on, err := c.emitExpr(j.On)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("let __lhs = (\n%s\n);\nlet __rhs = (\n%s\n);\n__lhs | join kind=%s (__rhs) on %s",
			indent(left), indent(right), kind, on), nil
	}
	// No join key: the two MATCH paths are independent, so cross them via
	// a constant join key rather than fabricating a column correlation.
	return fmt.Sprintf("let __lhs = (\n%s\n| extend __cross = 1\n);\nlet __rhs = (\n%s\n| extend __cross = 1\n);\n__lhs | join kind=%s (__rhs) on __cross",
		indent(left), indent(right), kind), nil
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// --- expressions ---

func (c *emitCtx) emitExpr(e ast.Expr) (string, *diag.Diagnostic) {
	switch expr := e.(type) {
	case ast.Comparison:
		left, err := c.emitExpr(expr.Left)
		if err != nil {
			return "", err
		}
		right, err := c.emitExpr(expr.Right)
		if err != nil {
			return "", err
		}
		return left + " " + comparisonOp(expr.Op) + " " + right, nil
	case ast.Logical:
		return c.emitLogical(expr)
	case ast.PropertyExpr:
		return expr.Var + "." + c.columnFor(expr.Var, expr.Name), nil
	case ast.IdentifierExpr:
		return expr.Name, nil
	case ast.LiteralExpr:
		return encodeLiteral(expr.Literal), nil
	case ast.FunctionExpr:
		return c.emitFunction(expr)
	default:
		return "", diag.New(diag.UnrepresentableConstruct, "expression of type %T has no KQL rendering", e)
	}
}

func comparisonOp(op string) string {
	switch op {
	case "=":
		return "=="
	case "<>":
		return "!="
	default:
		return op
	}
}

func (c *emitCtx) emitLogical(l ast.Logical) (string, *diag.Diagnostic) {
	if l.Op == ast.LNot {
		if len(l.Operands) != 1 {
			return "", diag.New(diag.UnrepresentableConstruct, "NOT expects exactly one operand, got %d", len(l.Operands))
		}
		inner, err := c.emitExpr(l.Operands[0])
		if err != nil {
			return "", err
		}
		return "not(" + inner + ")", nil
	}

	joiner := " and "
	if l.Op == ast.LOr {
		joiner = " or "
	}
	parts := make([]string, len(l.Operands))
	for i, operand := range l.Operands {
		s, err := c.emitExpr(operand)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

func (c *emitCtx) emitFunction(f ast.FunctionExpr) (string, *diag.Diagnostic) {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		s, err := c.emitExpr(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	if mapped, ok := functionMap[strings.ToUpper(f.Name)]; ok {
		return mapped + "(" + strings.Join(args, ", ") + ")", nil
	}
	return strings.ToLower(f.Name) + "(" + strings.Join(args, ", ") + ")", nil
}

func encodeLiteral(lit ast.Literal) string {
	switch lit.Kind {
	case ast.KindString:
		s, _ := lit.Value.(string)
		return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
	case ast.KindNumber:
		return fmt.Sprintf("%v", lit.Value)
	case ast.KindBool:
		if b, _ := lit.Value.(bool); b {
			return "true"
		}
		return "false"
	default:
		return "null"
	}
}
