package optimizer

import (
	"github.com/google/cel-go/cel"

	"github.com/flanksource/yellowstone-kql/ast"
)

// shapeEnv declares the variables exposed to the CEL programs below. The
// optimizer never evaluates KQL with CEL — it only classifies the shape
// of an ast.Expr (its operator and operand kinds) to decide whether a
// rewrite rule applies, the way a type-checker would pattern-match an
// expression tree.
var shapeEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("op", cel.StringType),
		cel.Variable("left_kind", cel.StringType),
		cel.Variable("right_kind", cel.StringType),
	)
	if err != nil {
		panic(err)
	}
	shapeEnv = env
}

type shapeProgram struct {
	prg cel.Program
}

func mustCompile(expr string) shapeProgram {
	parsed, iss := shapeEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		panic(iss.Err())
	}
	prg, err := shapeEnv.Program(parsed)
	if err != nil {
		panic(err)
	}
	return shapeProgram{prg: prg}
}

var (
	// simpleEqualityShape matches `property = literal`, the shape
	// IndexHint requires.
	simpleEqualityShape = mustCompile(`op == "=" && left_kind == "property" && right_kind == "literal"`)
	// rangeBoundShape matches either bound of a `property >=/<=/=  literal`
	// time-range conjunct.
	rangeBoundShape = mustCompile(`(op == ">=" || op == "<=" || op == "=") && left_kind == "property" && right_kind == "literal"`)
)

func exprKind(e ast.Expr) string {
	switch e.(type) {
	case ast.PropertyExpr:
		return "property"
	case ast.IdentifierExpr:
		return "identifier"
	case ast.LiteralExpr:
		return "literal"
	case ast.FunctionExpr:
		return "function"
	case ast.Comparison:
		return "comparison"
	case ast.Logical:
		return "logical"
	default:
		return "other"
	}
}

func matchesShape(prg shapeProgram, cmp ast.Comparison) bool {
	out, _, err := prg.prg.Eval(map[string]any{
		"op":         cmp.Op,
		"left_kind":  exprKind(cmp.Left),
		"right_kind": exprKind(cmp.Right),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// isSimpleEquality reports whether cmp is `property = literal`.
func isSimpleEquality(cmp ast.Comparison) bool {
	return matchesShape(simpleEqualityShape, cmp)
}

// isRangeBound reports whether cmp is a single-sided range conjunct on a
// property.
func isRangeBound(cmp ast.Comparison) bool {
	return matchesShape(rangeBoundShape, cmp)
}
