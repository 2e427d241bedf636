// Package classifier computes a per-query complexity score and routes
// translation requests across FastPath (the deterministic pipeline in
// cypher/gremlin/resolver/plan/optimizer/emit), AiPath (an external
// AI-fallback translator), and Fallback, per spec.md §4.9.
package classifier

import "strings"

// Overall buckets a ComplexityScore into one of three bands.
type Overall string

const (
	Simple  Overall = "Simple"
	Medium  Overall = "Medium"
	Complex Overall = "Complex"
)

// ComplexityScore is the weighted classification of one query.
type ComplexityScore struct {
	Score   float64
	Factors map[string]float64
	Overall Overall
}

// factorWeights sum to 1.0, per spec.md §4.9's weighted-factor model.
var factorWeights = map[string]float64{
	"keyword_count":        0.15,
	"token_length":         0.15,
	"hop_count":            0.25,
	"variable_length_path": 0.20,
	"aggregation_presence": 0.15,
	"function_count":       0.10,
}

var keywords = []string{"MATCH", "WHERE", "RETURN", "OPTIONAL", "ORDER", "LIMIT", "SKIP", "DISTINCT", "WITH", "UNWIND"}

var aggregationFuncs = []string{"COUNT", "SUM", "AVG", "MIN", "MAX", "COLLECT"}

// Score computes a ComplexityScore from the raw source text, deliberately
// pre-parse so the engine can classify (and potentially route to AiPath)
// a query before committing to a full parse.
func Score(source string) ComplexityScore {
	upper := strings.ToUpper(source)

	keywordCount := 0
	for _, kw := range keywords {
		keywordCount += strings.Count(upper, kw)
	}
	tokenLength := len(strings.Fields(source))
	hopCount := strings.Count(source, "-[") + strings.Count(source, "]-")

	variableLength := 0.0
	if strings.Contains(source, "*") {
		variableLength = 1.0
	}
	aggregation := 0.0
	for _, fn := range aggregationFuncs {
		if strings.Contains(upper, fn+"(") {
			aggregation = 1.0
			break
		}
	}
	functionCount := strings.Count(source, "(")

	factors := map[string]float64{
		"keyword_count":        normalize(float64(keywordCount), 10),
		"token_length":         normalize(float64(tokenLength), 60),
		"hop_count":            normalize(float64(hopCount), 8),
		"variable_length_path": variableLength,
		"aggregation_presence": aggregation,
		"function_count":       normalize(float64(functionCount), 6),
	}

	var score float64
	for name, weight := range factorWeights {
		score += weight * factors[name]
	}
	if score > 1 {
		score = 1
	}

	overall := Simple
	switch {
	case score >= 0.66:
		overall = Complex
	case score >= 0.33:
		overall = Medium
	}

	return ComplexityScore{Score: score, Factors: factors, Overall: overall}
}

func normalize(v, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	n := v / ceiling
	if n > 1 {
		return 1
	}
	return n
}
