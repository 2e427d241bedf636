package pathalgo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/plan"
)

func intPtr(n int) *int { return &n }

func TestShortestPathBasic(t *testing.T) {
	s := &plan.ShortestPath{Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.Out}
	out := ShortestPath(s)
	assert.Equal(t, "graph-shortest-paths (a)-[KNOWS]->(b)", out)
}

func TestShortestPathWithMaxLength(t *testing.T) {
	s := &plan.ShortestPath{
		Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.Out,
		Constraints: plan.PathConstraint{MaxLength: intPtr(5)},
	}
	out := ShortestPath(s)
	assert.Contains(t, out, "graph-shortest-paths")
	assert.Contains(t, out, "| where path_length <= 5")
}

func TestShortestPathBidirectional(t *testing.T) {
	s := &plan.ShortestPath{
		Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.Both,
		Constraints: plan.PathConstraint{Bidirectional: true},
	}
	out := ShortestPath(s)
	assert.Contains(t, out, "graph-shortest-paths(bidirectional)")
	assert.Contains(t, out, "(a)-[KNOWS]-(b)")
}

func TestShortestPathWithWeight(t *testing.T) {
	s := &plan.ShortestPath{
		Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.In,
		Constraints: plan.PathConstraint{WeightColumn: "cost"},
	}
	out := ShortestPath(s)
	assert.Contains(t, out, "weight=cost")
	assert.Contains(t, out, "(a)<-[KNOWS]-(b)")
}

func TestAllPathsAllShortest(t *testing.T) {
	a := &plan.AllPaths{Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.Out, AllShortest: true, Min: intPtr(1), Max: intPtr(4)}
	out := AllPaths(a)
	assert.Contains(t, out, "all_shortest_paths ((a)-[KNOWS]->(b))")
	assert.Contains(t, out, "array_length(path) <= 4")
	assert.Contains(t, out, "array_length(path) >= 1")
}

func TestAllPathsVariableLength(t *testing.T) {
	a := &plan.AllPaths{Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.Out, Min: intPtr(1), Max: intPtr(3)}
	out := AllPaths(a)
	assert.Equal(t, "all_paths ((a)-[KNOWS*1..3]->(b))", out)
}

func TestAllPathsCycleDetection(t *testing.T) {
	a := &plan.AllPaths{Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.Out, Min: intPtr(1), Max: intPtr(3), CycleDetect: true}
	out := AllPaths(a)
	assert.Contains(t, out, "where not(has_duplicates(path_nodes))")
}

func TestAllPathsDefaultsWhenBoundsMissing(t *testing.T) {
	a := &plan.AllPaths{Source: "a", Target: "b", RelType: "KNOWS", Direction: ast.Out}
	out := AllPaths(a)
	assert.Equal(t, "all_paths ((a)-[KNOWS*1..10]->(b))", out)
}
