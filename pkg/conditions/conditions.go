// Package conditions evaluates the restricted expression grammar used by
// condition nodes and edge guards. Expressions run through the expr library
// against an explicit environment map; there is no access to anything not
// placed in the environment.
package conditions

import (
	"strconv"

	"github.com/oarkflow/expr"
)

// Validate parses an expression without evaluating it, so malformed
// conditions are caught when a node or graph is built rather than mid-run.
func Validate(code string) error {
	_, err := expr.Parse(code)

	return err
}

// Evaluate parses and evaluates an expression against the environment.
func Evaluate(code string, env map[string]any) (any, error) {
	program, err := expr.Parse(code)
	if err != nil {
		return nil, err
	}

	return program.Eval(env)
}

// EvaluateBool evaluates an expression and coerces the result to a boolean.
func EvaluateBool(code string, env map[string]any) (bool, error) {
	value, err := Evaluate(code, env)
	if err != nil {
		return false, err
	}

	return Truthy(value), nil
}

// Truthy converts arbitrary evaluation results to a boolean: booleans pass
// through, numbers are true when non-zero, strings parse as booleans when
// possible and are otherwise true when non-empty, collections are true when
// non-empty, nil and unknown types are false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return false
	}
}
