// Package pathalgo renders the plan package's path-algorithm nodes
// (shortestPath, allShortestPaths, and bare variable-length paths) into
// KQL snippets. It is grounded directly on original_source's
// ShortestPathTranslator and PathAlgorithmTranslator: the same
// direction-operator table, the same weight/max-length/bidirectional
// clause ordering, and the same all_paths / all_shortest_paths prefixes.
package pathalgo

import (
	"fmt"
	"strings"

	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/plan"
)

// directionOperators mirrors ShortestPathTranslator.direction_operators.
var directionOperators = map[ast.Direction]string{
	ast.Out:  "->",
	ast.In:   "<-",
	ast.Both: "--",
}

// ShortestPath renders a shortestPath(...) pseudo-call as a
// graph-shortest-paths expression, with optional weight, max-length, and
// bidirectional clauses layered on in the same order as the original
// translate_shortest_path.
func ShortestPath(s *plan.ShortestPath) string {
	pattern := pathPattern(s.Source, s.Target, s.RelType, s.Direction)

	weightExpr := ""
	if s.Constraints.WeightColumn != "" {
		weightExpr = " weight=" + s.Constraints.WeightColumn
	}
	query := "graph-shortest-paths" + weightExpr + " " + pattern

	if s.Constraints.MaxLength != nil {
		query += fmt.Sprintf(" | where path_length <= %d", *s.Constraints.MaxLength)
	}
	if s.Constraints.Bidirectional {
		query = strings.Replace(query, "graph-shortest-paths", "graph-shortest-paths(bidirectional)", 1)
	}
	return query
}

// AllPaths renders an allShortestPaths(...) call or a bare
// variable-length relationship. AllShortest dispatches to
// all_shortest_paths (translate_all_shortest_paths); otherwise it
// enumerates with all_paths over the `*min..max` bound
// (translate_all_paths), applying cycle detection as
// `where not(has_duplicates(path_nodes))` per the resolved cycle-detection
// spelling.
func AllPaths(a *plan.AllPaths) string {
	if a.AllShortest {
		pattern := pathPattern(a.Source, a.Target, a.RelType, a.Direction)
		query := "all_shortest_paths (" + pattern + ")"
		if a.Max != nil {
			query += fmt.Sprintf(" | where array_length(path) <= %d", *a.Max)
		}
		if a.Min != nil {
			query += fmt.Sprintf(" | where array_length(path) >= %d", *a.Min)
		}
		return query
	}

	min := 1
	if a.Min != nil {
		min = *a.Min
	}
	max := 10
	if a.Max != nil {
		max = *a.Max
	}
	rel := fmt.Sprintf("%s*%d..%d", a.RelType, min, max)
	query := "all_paths (" + pathPattern(a.Source, a.Target, rel, a.Direction) + ")"
	if a.CycleDetect {
		query += " | where not(has_duplicates(path_nodes))"
	}
	return query
}

func pathPattern(source, target, relRef string, dir ast.Direction) string {
	switch dir {
	case ast.In:
		return fmt.Sprintf("(%s)<-[%s]-(%s)", source, relRef, target)
	case ast.Both:
		return fmt.Sprintf("(%s)-[%s]-(%s)", source, relRef, target)
	default:
		return fmt.Sprintf("(%s)-[%s]->(%s)", source, relRef, target)
	}
}
