package cache

import "github.com/samber/lo"

// ComplexityStats summarizes the learned patterns for one complexity
// bucket, used by the classifier stats surface (spec.md §4.9's optional
// pattern mining).
type ComplexityStats struct {
	Complexity string
	Count      int
	TotalHits  int64
	AvgHits    float64
}

// MineByComplexity groups all cached entries by their recorded complexity
// classification and summarizes hit volume per bucket.
func (c *Cache) MineByComplexity() []ComplexityStats {
	groups := lo.GroupBy(c.GetPatterns(), func(e *CacheEntry) string { return e.Complexity })

	out := make([]ComplexityStats, 0, len(groups))
	for complexity, entries := range groups {
		totalHits := lo.SumBy(entries, func(e *CacheEntry) int64 { return e.HitCount })
		avg := float64(0)
		if len(entries) > 0 {
			avg = float64(totalHits) / float64(len(entries))
		}
		out = append(out, ComplexityStats{
			Complexity: complexity,
			Count:      len(entries),
			TotalHits:  totalHits,
			AvgHits:    avg,
		})
	}
	return out
}
