package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintNormalizesWhitespaceAndCase(t *testing.T) {
	a := Fingerprint("MATCH (n:User)   WHERE n.age > 30\nRETURN n")
	b := Fingerprint("match (n:user) where n.age > 30 return n")
	assert.Equal(t, a, b)
}

func TestFingerprintPreservesStringLiterals(t *testing.T) {
	a := Fingerprint("MATCH (n:User {name: 'John'}) RETURN n")
	b := Fingerprint("MATCH (n:User {name: 'JOHN'}) RETURN n")
	assert.NotEqual(t, a, b)
}

func TestGetMissIncrementsCounter(t *testing.T) {
	c := New(4, time.Hour)
	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestPutThenGetIsHit(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp1", "users | take 10", "simple")

	entry, ok := c.Get("fp1")
	require.True(t, ok)
	assert.Equal(t, "users | take 10", entry.KqlTemplate)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestGetExpiresAfterTTL(t *testing.T) {
	c := New(4, time.Millisecond)
	c.Put("fp1", "users | take 10", "simple")
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("fp1")
	assert.False(t, ok)
}

func TestRecordSuccessAndFailure(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp1", "users | take 10", "simple")
	c.RecordSuccess("fp1")
	c.RecordSuccess("fp1")
	c.RecordFailure("fp1")

	entries := c.GetPatterns()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].SuccessCount)
	assert.Equal(t, int64(1), entries[0].FailureCount)
}

func TestStatsHitRate(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp1", "users | take 10", "simple")
	c.Get("fp1")
	c.Get("does-not-exist")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestGetTopPatternsOrdersByHitCount(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp1", "a", "simple")
	c.Put("fp2", "b", "simple")
	c.Get("fp1")
	c.Get("fp1")
	c.Get("fp2")

	top := c.GetTopPatterns(1)
	require.Len(t, top, 1)
	assert.Equal(t, "fp1", top[0].Fingerprint)
}

func TestClearResetsEntriesAndCounters(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp1", "users | take 10", "simple")
	c.Get("fp1")
	c.Get("does-not-exist")
	require.NotEmpty(t, c.GetPatterns())

	c.Clear()

	assert.Empty(t, c.GetPatterns())
	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, 0, stats.Size)

	_, ok := c.Get("fp1")
	assert.False(t, ok)
}

func TestMineByComplexityGroupsAndAverages(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp1", "a", "simple")
	c.Put("fp2", "b", "simple")
	c.Put("fp3", "c", "complex")
	c.Get("fp1")

	stats := c.MineByComplexity()
	byComplexity := map[string]ComplexityStats{}
	for _, s := range stats {
		byComplexity[s.Complexity] = s
	}

	require.Contains(t, byComplexity, "simple")
	assert.Equal(t, 2, byComplexity["simple"].Count)
	assert.Equal(t, int64(1), byComplexity["simple"].TotalHits)
	require.Contains(t, byComplexity, "complex")
	assert.Equal(t, 1, byComplexity["complex"].Count)
}
