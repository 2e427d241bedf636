package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/yellowstone-kql/ast"
)

func TestParseSimpleNodeMatch(t *testing.T) {
	q, errs := Parse("MATCH (n:User) RETURN n")
	require.Empty(t, errs)
	require.Len(t, q.Match.Paths, 1)

	path := q.Match.Paths[0]
	require.Len(t, path.Nodes, 1)
	assert.Equal(t, "n", path.Nodes[0].Variable.Name)
	require.Len(t, path.Nodes[0].Labels, 1)
	assert.Equal(t, "User", path.Nodes[0].Labels[0].Name)

	require.Len(t, q.Return.Items, 1)
	id, ok := q.Return.Items[0].Expr.(ast.IdentifierExpr)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestParseNodeWithPropertyMap(t *testing.T) {
	q, errs := Parse(`MATCH (n:User {name: 'John'}) RETURN n`)
	require.Empty(t, errs)

	props := q.Match.Paths[0].Nodes[0].Properties
	require.Contains(t, props, "name")
	assert.Equal(t, "John", props["name"].Value)
	assert.Equal(t, ast.KindString, props["name"].Kind)
}

func TestParseDirectedRelationship(t *testing.T) {
	q, errs := Parse("MATCH (n:User)-[r:KNOWS]->(m:User) RETURN n, m")
	require.Empty(t, errs)

	path := q.Match.Paths[0]
	require.Len(t, path.Nodes, 2)
	require.Len(t, path.Relationships, 1)
	rel := path.Relationships[0]
	assert.Equal(t, ast.Out, rel.Direction)
	assert.Equal(t, "KNOWS", rel.Type.Name)
	assert.Equal(t, "r", rel.Variable.Name)
	require.Len(t, q.Return.Items, 2)
}

func TestParseWhereOrderLimit(t *testing.T) {
	q, errs := Parse("MATCH (n:User) WHERE n.age > 30 RETURN n.name ORDER BY n.age DESC LIMIT 5")
	require.Empty(t, errs)

	require.NotNil(t, q.Where)
	cmp, ok := q.Where.Condition.(ast.Comparison)
	require.True(t, ok)
	assert.Equal(t, ">", cmp.Op)
	prop, ok := cmp.Left.(ast.PropertyExpr)
	require.True(t, ok)
	assert.Equal(t, "n", prop.Var)
	assert.Equal(t, "age", prop.Name)

	require.Len(t, q.Return.OrderBy, 1)
	assert.Equal(t, ast.Desc, q.Return.OrderBy[0].Direction)
	require.NotNil(t, q.Return.Limit)
	assert.Equal(t, 5, *q.Return.Limit)
}

func TestParseVariableLengthPath(t *testing.T) {
	q, errs := Parse("MATCH (a)-[r*1..3]->(b) RETURN a, b")
	require.Empty(t, errs)

	rel := q.Match.Paths[0].Relationships[0]
	require.NotNil(t, rel.Length)
	require.NotNil(t, rel.Length.Min)
	require.NotNil(t, rel.Length.Max)
	assert.Equal(t, 1, *rel.Length.Min)
	assert.Equal(t, 3, *rel.Length.Max)
}

func TestParseOptionalMatch(t *testing.T) {
	q, errs := Parse("OPTIONAL MATCH (n:User) RETURN n")
	require.Empty(t, errs)
	assert.True(t, q.Match.Optional)
}

func TestParseUnexpectedTokenProducesDiagnostic(t *testing.T) {
	_, errs := Parse("MATCH (n:User RETURN n")
	require.NotEmpty(t, errs)
	assert.Equal(t, "UnexpectedToken", string(errs[0].Kind))
}
