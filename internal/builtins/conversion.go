package builtins

import (
	"math"

	"github.com/just-be-dev/pex-sub001/internal/value"
)

func toInt(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("int", "expected 1 argument, got %d", len(args))
	}
	n := float64(value.ToNumber(args[0]))
	if math.IsNaN(n) {
		return value.Number(0), nil
	}
	return value.Number(math.Trunc(n)), nil
}

// toFloat coerces to a Number, mapping NaN to 0 — unlike ToNumber itself,
// which preserves NaN for internal arithmetic use.
func toFloat(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("float", "expected 1 argument, got %d", len(args))
	}
	n := value.ToNumber(args[0])
	if math.IsNaN(float64(n)) {
		return value.Number(0), nil
	}
	return n, nil
}

func toStringBuiltin(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("string", "expected 1 argument, got %d", len(args))
	}
	return value.String(value.ToDisplayString(args[0])), nil
}

func toBoolBuiltin(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("bool", "expected 1 argument, got %d", len(args))
	}
	return value.ToBoolean(args[0]), nil
}
