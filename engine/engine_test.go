package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flanksourceContext "github.com/flanksource/commons/context"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/classifier"
	"github.com/flanksource/yellowstone-kql/diag"
)

func testCatalog() *catalog.Catalog {
	return catalog.Load(catalog.Description{
		Labels: []catalog.Label{
			{Name: "User", Table: "users", IDColumn: "id", Props: map[string]string{"name": "name", "age": "age"}},
		},
		Tables: []catalog.Table{
			{Name: "users", IDColumn: "id", RowEstimate: 1000, Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeString}, {Name: "name", Type: catalog.TypeString}, {Name: "age", Type: catalog.TypeNumber},
			}},
		},
	})
}

func testContext() Context {
	return flanksourceContext.NewContext(context.Background())
}

func newTestEngine() *TranslatorEngine {
	opts := DefaultOptions()
	opts.EnableAI = false
	return New(testCatalog(), nil, opts)
}

func TestTranslateSimpleQuerySucceeds(t *testing.T) {
	eng := newTestEngine()
	result, errs := eng.Translate(testContext(), "MATCH (n:User) RETURN n.name", Cypher, RequestContext{})
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, PlanPath, result.Strategy)
	assert.Contains(t, result.Query, "users")
}

func TestTranslateGremlinDialect(t *testing.T) {
	eng := newTestEngine()
	result, errs := eng.Translate(testContext(), "g.V().hasLabel('User').values('name')", Gremlin, RequestContext{})
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, PlanPath, result.Strategy)
}

func TestTranslateUnknownLabelFails(t *testing.T) {
	eng := newTestEngine()
	result, errs := eng.Translate(testContext(), "MATCH (n:Ghost) RETURN n", Cypher, RequestContext{})
	assert.Nil(t, result)
	require.NotEmpty(t, errs)
}

func TestTranslateCancelledContextBeforeStart(t *testing.T) {
	eng := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, errs := eng.Translate(flanksourceContext.NewContext(ctx), "MATCH (n:User) RETURN n", Cypher, RequestContext{})
	assert.Nil(t, result)
	require.NotEmpty(t, errs)
	assert.Equal(t, diag.Cancelled, errs[0].Kind)
}

func TestTranslateWithoutAIDeniesFallback(t *testing.T) {
	eng := newTestEngine()
	result, errs := eng.Translate(testContext(), "MATCH (n:Ghost) RETURN n", Cypher, RequestContext{EnableAI: true})
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, "UnknownLabel", string(errs[0].Kind))
}

func TestValidateRejectsEmptyAndUnbalanced(t *testing.T) {
	eng := newTestEngine()
	assert.False(t, eng.Validate(""))
	assert.False(t, eng.Validate("users | where (age > 1"))
	assert.False(t, eng.Validate("nonexistent_table | where age > 1"))
	assert.True(t, eng.Validate("users | where age > 1"))
}

// TestCacheHitSequence walks the scenario where the same query is
// translated twice: the first call misses the cache and runs the full
// pipeline, the second call hits the cache the first call populated.
func TestCacheHitSequence(t *testing.T) {
	eng := newTestEngine()
	source := "MATCH (n:User) RETURN n.name"

	first, errs := eng.Translate(testContext(), source, Cypher, RequestContext{})
	require.Empty(t, errs)
	require.NotNil(t, first)
	assert.Equal(t, PlanPath, first.Strategy)

	second, errs := eng.Translate(testContext(), source, Cypher, RequestContext{})
	require.Empty(t, errs)
	require.NotNil(t, second)
	assert.Equal(t, FastPath, second.Strategy)

	cacheStats := eng.CacheStats()
	assert.Equal(t, 0.5, cacheStats.HitRate)
	assert.Equal(t, int64(1), cacheStats.Hits)
	assert.Equal(t, int64(1), cacheStats.Misses)

	var fastRoute classifier.Stats
	for _, s := range eng.RouteStats() {
		if s.Route == classifier.FastPath {
			fastRoute = s
		}
	}
	assert.Equal(t, int64(2), fastRoute.Attempts)
	assert.GreaterOrEqual(t, fastRoute.Successes, int64(1))
}

func TestDefaultOptionsAreSane(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 20, opts.OptimizerIterationCap)
	assert.Equal(t, 24*time.Hour, opts.CacheTTL)
}
