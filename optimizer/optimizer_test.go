package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/plan"
)

func testCatalog() *catalog.Catalog {
	return catalog.Load(catalog.Description{
		Labels: []catalog.Label{
			{Name: "User", Table: "users", IDColumn: "id", Props: map[string]string{"name": "name", "age": "age"}},
		},
		Tables: []catalog.Table{
			{Name: "users", IDColumn: "id", TimeColumn: "created_at", RowEstimate: 1000, Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeString},
				{Name: "name", Type: catalog.TypeString},
				{Name: "age", Type: catalog.TypeNumber},
				{Name: "created_at", Type: catalog.TypeTime},
			}},
		},
	})
}

func eqComparison(variable, prop string, value string) ast.Comparison {
	return ast.Comparison{
		Op:    "=",
		Left:  ast.PropertyExpr{Var: variable, Name: prop},
		Right: ast.LiteralExpr{Literal: ast.Literal{Value: value, Kind: ast.KindString}},
	}
}

func TestFilterPushdownMergesIntoScan(t *testing.T) {
	scan := &plan.Scan{Table: "users", Variable: "n", Label: "User"}
	filter := &plan.Filter{Input: scan, Predicate: eqComparison("n", "name", "John")}

	out, err := New(testCatalog()).WithMaxIterations(1).Run(filter)
	require.Nil(t, err)

	rewritten, ok := out.(*plan.Scan)
	require.True(t, ok)
	require.NotNil(t, rewritten.Predicate)
}

func TestPredicatePushdownSplitsAcrossJoin(t *testing.T) {
	left := &plan.Scan{Table: "users", Variable: "n", Label: "User"}
	right := &plan.Scan{Table: "users", Variable: "m", Label: "User"}
	join := &plan.Join{Left: left, Right: right, Kind: plan.InnerJoin}
	filter := &plan.Filter{
		Input: join,
		Predicate: ast.Logical{
			Op: ast.LAnd,
			Operands: []ast.Expr{
				eqComparison("n", "name", "John"),
				eqComparison("m", "name", "Jane"),
			},
		},
	}

	out, err := New(testCatalog()).WithMaxIterations(1).Run(filter)
	require.Nil(t, err)

	newJoin, ok := out.(*plan.Join)
	require.True(t, ok)
	leftFilter, ok := newJoin.Left.(*plan.Filter)
	require.True(t, ok)
	assert.NotNil(t, leftFilter.Predicate)
	rightFilter, ok := newJoin.Right.(*plan.Filter)
	require.True(t, ok)
	assert.NotNil(t, rightFilter.Predicate)
}

func TestJoinOrderPlacesSmallerSideLeft(t *testing.T) {
	big := &plan.Scan{Table: "users", Variable: "n", EstimatedCost: plan.CostEstimate{Rows: 1000}}
	small := &plan.Scan{Table: "users", Variable: "m", EstimatedCost: plan.CostEstimate{Rows: 10}}
	join := &plan.Join{Left: big, Right: small, Kind: plan.InnerJoin, EstimatedCost: plan.CostEstimate{Rows: 10000}}

	out, err := New(testCatalog()).WithMaxIterations(1).Run(join)
	require.Nil(t, err)

	rewritten := out.(*plan.Join)
	assert.Equal(t, small, rewritten.Left)
	assert.Equal(t, big, rewritten.Right)
}

func TestTimeRangeLiftsBoundsOutOfScan(t *testing.T) {
	scan := &plan.Scan{
		Table: "users", Variable: "n", Label: "User",
		Predicate: ast.Logical{
			Op: ast.LAnd,
			Operands: []ast.Expr{
				ast.Comparison{Op: ">=", Left: ast.PropertyExpr{Var: "n", Name: "created_at"}, Right: ast.LiteralExpr{Literal: ast.Literal{Value: "2024-01-01", Kind: ast.KindString}}},
				ast.Comparison{Op: "<=", Left: ast.PropertyExpr{Var: "n", Name: "created_at"}, Right: ast.LiteralExpr{Literal: ast.Literal{Value: "2024-12-31", Kind: ast.KindString}}},
			},
		},
	}

	out, err := New(testCatalog()).WithMaxIterations(1).Run(scan)
	require.Nil(t, err)

	rewritten := out.(*plan.Scan)
	require.NotNil(t, rewritten.TimeRange)
	assert.Equal(t, "created_at", rewritten.TimeRange.Column)
	assert.Nil(t, rewritten.Predicate)
}

func TestIndexHintAnnotatesPrimaryKeyEquality(t *testing.T) {
	scan := &plan.Scan{Table: "users", Variable: "n", Label: "User", Predicate: eqComparison("n", "id", "abc")}

	out, err := New(testCatalog()).WithMaxIterations(1).Run(scan)
	require.Nil(t, err)

	rewritten := out.(*plan.Scan)
	assert.Equal(t, "id", rewritten.IndexHint)
}

func TestWithMaxIterationsOverridesDefault(t *testing.T) {
	o := New(testCatalog()).WithMaxIterations(5)
	assert.Equal(t, 5, o.maxIterations)

	o2 := New(testCatalog()).WithMaxIterations(0)
	assert.Equal(t, MaxIterations, o2.maxIterations)
}

func TestRunConvergesWithoutChanges(t *testing.T) {
	scan := &plan.Scan{Table: "users", Variable: "n", Label: "User"}
	out, err := New(testCatalog()).Run(scan)
	require.Nil(t, err)
	assert.Equal(t, scan, out)
}
