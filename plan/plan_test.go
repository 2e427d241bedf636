package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/cypher"
	"github.com/flanksource/yellowstone-kql/resolver"
)

func testCatalog() *catalog.Catalog {
	return catalog.Load(catalog.Description{
		Labels: []catalog.Label{
			{Name: "User", Table: "users", IDColumn: "id", Props: map[string]string{"name": "name", "age": "age"}},
			{Name: "Company", Table: "companies", IDColumn: "id", Props: map[string]string{"name": "name"}},
		},
		Relationships: []catalog.RelationshipMeta{
			{Type: "KNOWS", FromLabel: "User", ToLabel: "User", Table: "knows_edges"},
			{Type: "WORKS_AT", FromLabel: "User", ToLabel: "Company", Table: "works_at_edges"},
		},
		Tables: []catalog.Table{
			{Name: "users", IDColumn: "id", RowEstimate: 1000, Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeString}, {Name: "name", Type: catalog.TypeString}, {Name: "age", Type: catalog.TypeNumber},
			}},
			{Name: "companies", IDColumn: "id", RowEstimate: 50, Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeString}, {Name: "name", Type: catalog.TypeString},
			}},
			{Name: "knows_edges", Columns: []catalog.Column{{Name: "from"}, {Name: "to"}}},
			{Name: "works_at_edges", Columns: []catalog.Column{{Name: "from"}, {Name: "to"}}},
		},
	})
}

func mustResolve(t *testing.T, source string) *resolver.ResolvedQuery {
	t.Helper()
	q, errs := cypher.Parse(source)
	require.Empty(t, errs)
	resolved, rerrs := resolver.New(testCatalog()).Resolve(q)
	require.Empty(t, rerrs)
	return resolved
}

func TestPlanSingleNodeProducesGraphMatch(t *testing.T) {
	rq := mustResolve(t, "MATCH (n:User) RETURN n.name")
	root, err := New(testCatalog()).Plan(rq)
	require.Nil(t, err)

	proj, ok := root.(*Project)
	require.True(t, ok)
	match, ok := proj.Input.(*GraphMatch)
	require.True(t, ok)
	assert.Equal(t, "users", match.Bindings["n"])
}

func TestPlanNodeWithPropertyCarriesLiteralInPattern(t *testing.T) {
	rq := mustResolve(t, `MATCH (n:User {name: 'John'}) RETURN n`)
	root, err := New(testCatalog()).Plan(rq)
	require.Nil(t, err)

	proj := root.(*Project)
	match := proj.Input.(*GraphMatch)
	require.Len(t, match.Path.Nodes, 1)
	require.Contains(t, match.Path.Nodes[0].Properties, "name")
}

func TestPlanRelationshipProducesGraphMatch(t *testing.T) {
	rq := mustResolve(t, "MATCH (n:User)-[r:WORKS_AT]->(c:Company) RETURN n, c")
	root, err := New(testCatalog()).Plan(rq)
	require.Nil(t, err)

	proj := root.(*Project)
	match, ok := proj.Input.(*GraphMatch)
	require.True(t, ok)
	assert.Equal(t, "users", match.Bindings["n"])
	assert.Equal(t, "companies", match.Bindings["c"])
}

func TestPlanWhereOrderLimitWrapsInOrder(t *testing.T) {
	rq := mustResolve(t, "MATCH (n:User) WHERE n.age > 30 RETURN n.name ORDER BY n.age DESC LIMIT 5")
	root, err := New(testCatalog()).Plan(rq)
	require.Nil(t, err)

	limit, ok := root.(*Limit)
	require.True(t, ok)
	assert.Equal(t, 5, limit.N)

	sort, ok := limit.Input.(*Sort)
	require.True(t, ok)
	require.Len(t, sort.Keys, 1)

	proj, ok := sort.Input.(*Project)
	require.True(t, ok)

	filter, ok := proj.Input.(*Filter)
	require.True(t, ok)
	require.NotNil(t, filter.Predicate)
}

func TestPlanVariableLengthPathProducesAllPaths(t *testing.T) {
	rq := mustResolve(t, "MATCH (a:User)-[r:KNOWS*1..3]->(b:User) RETURN a, b")
	root, err := New(testCatalog()).Plan(rq)
	require.Nil(t, err)

	proj := root.(*Project)
	allPaths, ok := proj.Input.(*AllPaths)
	require.True(t, ok)
	assert.Equal(t, "a", allPaths.Source)
	assert.Equal(t, "b", allPaths.Target)
	assert.Equal(t, "KNOWS", allPaths.RelType)
	require.NotNil(t, allPaths.Min)
	assert.Equal(t, 1, *allPaths.Min)
	require.NotNil(t, allPaths.Max)
	assert.Equal(t, 3, *allPaths.Max)
	assert.False(t, allPaths.AllShortest)
}

func TestPlanMultiplePathsProducesJoin(t *testing.T) {
	rq := mustResolve(t, "MATCH (n:User), (c:Company) RETURN n, c")
	root, err := New(testCatalog()).Plan(rq)
	require.Nil(t, err)

	proj := root.(*Project)
	join, ok := proj.Input.(*Join)
	require.True(t, ok)
	assert.Equal(t, InnerJoin, join.Kind)
}
