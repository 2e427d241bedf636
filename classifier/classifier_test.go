package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreSimpleQueryIsSimple(t *testing.T) {
	s := Score("MATCH (n:User) RETURN n")
	assert.Equal(t, Simple, s.Overall)
}

func TestScoreVariableLengthPathRaisesScore(t *testing.T) {
	simple := Score("MATCH (n:User) RETURN n")
	varLen := Score("MATCH (a)-[r*1..5]->(b)-[s*1..5]->(c)-[u*1..5]->(d) WHERE a.age > 1 RETURN a, b, c, d ORDER BY a.age")
	assert.Greater(t, varLen.Score, simple.Score)
	assert.Equal(t, 1.0, varLen.Factors["variable_length_path"])
}

func TestScoreAggregationPresence(t *testing.T) {
	s := Score("MATCH (n:User) RETURN COUNT(n)")
	assert.Equal(t, 1.0, s.Factors["aggregation_presence"])
}

func TestClassifyForceAIReturnsAiPath(t *testing.T) {
	c := New(0)
	decision := c.Classify(Score("MATCH (n:User) RETURN n"), true)
	assert.Equal(t, AiPath, decision.Route)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Equal(t, "Forced", decision.Reasoning)
}

func TestClassifySimpleScoreRoutesFastPath(t *testing.T) {
	c := New(0)
	decision := c.Classify(Score("MATCH (n:User) RETURN n"), false)
	assert.Equal(t, FastPath, decision.Route)
}

func TestClassifyDampsRouteBelowThreshold(t *testing.T) {
	c := New(0.9)
	for i := 0; i < 10; i++ {
		c.RecordFailure(FastPath)
	}
	decision := c.Classify(Score("MATCH (n:User) RETURN n"), false)
	assert.NotEqual(t, FastPath, decision.Route)
	assert.Equal(t, AiPath, decision.Route)
}

func TestRecordSuccessAndStats(t *testing.T) {
	c := New(0)
	c.RecordSuccess(FastPath)
	c.RecordSuccess(FastPath)
	c.RecordFailure(FastPath)

	var fastStats Stats
	for _, s := range c.Stats() {
		if s.Route == FastPath {
			fastStats = s
		}
	}
	assert.Equal(t, int64(3), fastStats.Attempts)
	assert.Equal(t, int64(2), fastStats.Successes)
	assert.InDelta(t, 0.666, fastStats.SuccessRate, 0.01)
}

func TestNewDefaultsThresholdWhenNonPositive(t *testing.T) {
	c := New(-1)
	assert.Equal(t, defaultDampingThreshold, c.threshold)
}
