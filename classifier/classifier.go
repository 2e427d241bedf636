package classifier

import (
	"fmt"
	"sync/atomic"
)

// Route is one of the three destinations a translation request can be
// sent to.
type Route string

const (
	FastPath Route = "FastPath"
	AiPath   Route = "AiPath"
	Fallback Route = "Fallback"
)

// RouteDecision is the classifier's recommendation for one query.
type RouteDecision struct {
	Route        Route
	Confidence   float64
	Reasoning    string
	Alternatives []Route
}

// defaultDampingThreshold is the running success rate below which a
// route's confidence is damped and the decision falls through to its
// next alternative, used when New is called with a non-positive
// threshold.
const defaultDampingThreshold = 0.5

// routeStats tracks a route's running success rate with two atomic
// counters rather than a mutex, since every operation is a single
// increment and reads tolerate staleness (spec.md §5).
type routeStats struct {
	attempts  int64
	successes int64
}

func (r *routeStats) rate() float64 {
	attempts := atomic.LoadInt64(&r.attempts)
	if attempts == 0 {
		return 1
	}
	return float64(atomic.LoadInt64(&r.successes)) / float64(attempts)
}

func (r *routeStats) record(success bool) {
	atomic.AddInt64(&r.attempts, 1)
	if success {
		atomic.AddInt64(&r.successes, 1)
	}
}

// Classifier assigns a RouteDecision to each query. It owns one
// routeStats per Route so repeated Classify calls can damp a route whose
// running success rate has dropped.
type Classifier struct {
	stats     map[Route]*routeStats
	threshold float64
}

// New creates a Classifier with fresh per-route counters. threshold
// overrides defaultDampingThreshold when positive, letting
// engine.Options.RouteSuccessThreshold tune how aggressively a degraded
// route is avoided.
func New(threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = defaultDampingThreshold
	}
	return &Classifier{
		threshold: threshold,
		stats: map[Route]*routeStats{
			FastPath: {}, AiPath: {}, Fallback: {},
		},
	}
}

// Classify assigns a route to score. forceAI overrides to AiPath
// unconditionally with reasoning "Forced", per spec.md §4.9; otherwise
// the nominal route for score.Overall is damped by that route's running
// success rate, falling through to its first alternative if the rate has
// dropped below the threshold passed to New.
func (c *Classifier) Classify(score ComplexityScore, forceAI bool) RouteDecision {
	if forceAI {
		return RouteDecision{
			Route: AiPath, Confidence: 1, Reasoning: "Forced",
			Alternatives: []Route{FastPath, Fallback},
		}
	}

	route, alternatives := routeFor(score.Overall)
	confidence := 1 - score.Score*0.3

	if rate := c.stats[route].rate(); rate < c.threshold {
		confidence *= rate / c.threshold
		if len(alternatives) > 0 {
			route, alternatives = alternatives[0], append([]Route{route}, alternatives[1:]...)
		}
	}
	if confidence < 0 {
		confidence = 0
	}

	return RouteDecision{
		Route:        route,
		Confidence:   confidence,
		Reasoning:    fmt.Sprintf("complexity score %.2f classified as %s", score.Score, score.Overall),
		Alternatives: alternatives,
	}
}

// routeFor returns the nominal route and its fallback ordering for a
// complexity band. Thresholds are tuned so a typical mixed workload lands
// close to spec.md §4.9's ≈85/10/5 FastPath/AiPath/Fallback split.
func routeFor(overall Overall) (Route, []Route) {
	switch overall {
	case Complex:
		return Fallback, []Route{AiPath, FastPath}
	case Medium:
		return AiPath, []Route{FastPath, Fallback}
	default:
		return FastPath, []Route{AiPath, Fallback}
	}
}

// RecordSuccess feeds a successful translation via r back into that
// route's running success rate.
func (c *Classifier) RecordSuccess(r Route) { c.stats[r].record(true) }

// RecordFailure feeds a failed translation via r back into that route's
// running success rate.
func (c *Classifier) RecordFailure(r Route) { c.stats[r].record(false) }

// Stats is a point-in-time snapshot of one route's running success rate.
type Stats struct {
	Route       Route
	Attempts    int64
	Successes   int64
	SuccessRate float64
}

// Stats returns a snapshot for every route.
func (c *Classifier) Stats() []Stats {
	routes := []Route{FastPath, AiPath, Fallback}
	out := make([]Stats, len(routes))
	for i, r := range routes {
		st := c.stats[r]
		out[i] = Stats{
			Route:       r,
			Attempts:    atomic.LoadInt64(&st.attempts),
			Successes:   atomic.LoadInt64(&st.successes),
			SuccessRate: st.rate(),
		}
	}
	return out
}
