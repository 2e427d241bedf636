package gremlin

import (
	"fmt"

	"github.com/flanksource/yellowstone-kql/diag"
)

var validPredicateOps = map[string]bool{
	"gt": true, "gte": true, "lt": true, "lte": true,
	"eq": true, "neq": true, "within": true, "without": true,
}

// Parse tokenizes and parses a Gremlin step chain into a Traversal.
func Parse(source string) (*Traversal, *diag.Diagnostic) {
	tokens, err := newTokenizer(source).tokenize()
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, diag.New(diag.UnsupportedStart, "empty Gremlin traversal")
	}
	if tokens[0].method != "g" {
		return nil, diag.New(diag.UnsupportedStart, "traversal must start with 'g', got %q", tokens[0].method).WithSpan(tokens[0].span)
	}

	var steps []Step
	for _, tok := range tokens[1:] {
		step, err := parseStep(tok)
		if err != nil {
			return nil, err
		}
		if step != nil {
			steps = append(steps, step)
		}
	}
	if len(steps) == 0 {
		return nil, diag.New(diag.UnsupportedStart, "traversal must have at least one step after 'g'")
	}
	return &Traversal{Steps: steps}, nil
}

func parseStep(tok methodToken) (Step, *diag.Diagnostic) {
	switch tok.method {
	case "V":
		return VertexStep{IDs: stringifyIDs(tok.args), Span: tok.span}, nil
	case "E":
		return EdgeStep{IDs: stringifyIDs(tok.args), Span: tok.span}, nil

	case "hasLabel":
		if len(tok.args) == 0 {
			return nil, diag.New(diag.WrongArgCount, "hasLabel() requires a label argument").WithSpan(tok.span)
		}
		v, err := parseValue(tok.args[0])
		if err != nil {
			return nil, err.WithSpan(tok.span)
		}
		return FilterStep{FilterType: "hasLabel", Value: &v, Span: tok.span}, nil

	case "has":
		switch len(tok.args) {
		case 1:
			return FilterStep{FilterType: "has", Property: fmt.Sprint(tok.args[0]), Span: tok.span}, nil
		case 2:
			prop := fmt.Sprint(tok.args[0])
			if pa, ok := tok.args[1].(predicateArg); ok {
				pred, err := parsePredicate(pa)
				if err != nil {
					return nil, err.WithSpan(tok.span)
				}
				return FilterStep{FilterType: "has", Property: prop, Predicate: pred, Span: tok.span}, nil
			}
			v, err := parseValue(tok.args[1])
			if err != nil {
				return nil, err.WithSpan(tok.span)
			}
			return FilterStep{FilterType: "has", Property: prop, Value: &v, Span: tok.span}, nil
		default:
			return nil, diag.New(diag.WrongArgCount, "has() accepts 1-2 arguments, got %d", len(tok.args)).WithSpan(tok.span)
		}

	case "hasId", "hasKey", "hasValue":
		if len(tok.args) == 0 {
			return nil, diag.New(diag.WrongArgCount, "%s() requires an argument", tok.method).WithSpan(tok.span)
		}
		v, err := parseValue(tok.args[0])
		if err != nil {
			return nil, err.WithSpan(tok.span)
		}
		return FilterStep{FilterType: tok.method, Value: &v, Span: tok.span}, nil

	case "out", "in", "both":
		label := ""
		if len(tok.args) > 0 {
			label = fmt.Sprint(tok.args[0])
		}
		return TraversalStep{Direction: tok.method, TraversalType: "vertex", EdgeLabel: label, Span: tok.span}, nil

	case "outE", "inE", "bothE":
		dir := tok.method[:len(tok.method)-1]
		label := ""
		if len(tok.args) > 0 {
			label = fmt.Sprint(tok.args[0])
		}
		return TraversalStep{Direction: dir, TraversalType: "edge", EdgeLabel: label, Span: tok.span}, nil

	case "outV", "inV", "bothV", "otherV":
		dirMap := map[string]string{"outV": "out", "inV": "in", "bothV": "both", "otherV": "other"}
		return TraversalStep{Direction: dirMap[tok.method], TraversalType: "vertex", Span: tok.span}, nil

	case "values", "valueMap", "properties", "elementMap":
		var names []string
		for _, a := range tok.args {
			if s, ok := a.(string); ok {
				names = append(names, s)
			}
		}
		return ProjectionStep{ProjectionType: tok.method, PropertyNames: names, Span: tok.span}, nil

	case "limit":
		if len(tok.args) == 0 {
			return nil, diag.New(diag.WrongArgCount, "limit() requires a count argument").WithSpan(tok.span)
		}
		f, ok := tok.args[0].(float64)
		if !ok {
			return nil, diag.New(diag.WrongArgCount, "limit() expects an integer argument").WithSpan(tok.span)
		}
		return LimitStep{Count: int(f), Span: tok.span}, nil

	case "order":
		return OrderStep{Order: "asc", Span: tok.span}, nil

	case "by":
		// Modulator attached to the preceding order() step; callers fold
		// it in during the collect pass rather than here, since it needs
		// access to the step already appended.
		return byModulator{args: tok.args, span: tok.span}, nil

	case "count":
		return CountStep{Span: tok.span}, nil

	case "dedup":
		return DedupStep{Span: tok.span}, nil

	default:
		return nil, diag.New(diag.UnsupportedPattern, "unsupported Gremlin step %q", tok.method).WithSpan(tok.span)
	}
}

// byModulator is an internal-only pseudo-step for `.by(...)`, folded into
// the preceding OrderStep by the lowering pass and never seen downstream.
type byModulator struct {
	args []any
	span diag.Span
}

func (byModulator) stepNode() {}

func stringifyIDs(args []any) []string {
	var ids []string
	for _, a := range args {
		ids = append(ids, fmt.Sprint(a))
	}
	return ids
}

func parseValue(raw any) (Value, *diag.Diagnostic) {
	switch v := raw.(type) {
	case string:
		return Value{Raw: v, Kind: KindString}, nil
	case bool:
		return Value{Raw: v, Kind: KindBool}, nil
	case float64:
		return Value{Raw: v, Kind: KindNumber}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{}, diag.New(diag.WrongArgCount, "unsupported value type %T", raw)
	}
}

func parsePredicate(pa predicateArg) (*Predicate, *diag.Diagnostic) {
	if !validPredicateOps[pa.name] {
		return nil, diag.New(diag.UnsupportedPattern, "unknown predicate operator %q", pa.name)
	}
	if len(pa.args) == 0 {
		return nil, diag.New(diag.WrongArgCount, "predicate %s() requires an argument", pa.name)
	}
	v, err := parseValue(pa.args[0])
	if err != nil {
		return nil, err
	}
	return &Predicate{Op: pa.name, Value: v}, nil
}
