package builtins

import (
	"math"

	"github.com/just-be-dev/pex-sub001/internal/value"
)

// add is variadic with identity 0.
func add(args []value.Value) (value.Value, error) {
	sum := 0.0
	for _, a := range args {
		n, err := asNumber("+", a)
		if err != nil {
			return nil, err
		}
		sum += n
	}
	return value.Number(sum), nil
}

// sub supports both the binary form and the unary negation the NEG opcode
// falls back to when its operand isn't a Number, since the surface/IR
// only has one "-" name for both.
func sub(args []value.Value) (value.Value, error) {
	switch len(args) {
	case 1:
		n, err := asNumber("-", args[0])
		if err != nil {
			return nil, err
		}
		return value.Number(-n), nil
	case 2:
		a, err := asNumber("-", args[0])
		if err != nil {
			return nil, err
		}
		b, err := asNumber("-", args[1])
		if err != nil {
			return nil, err
		}
		return value.Number(a - b), nil
	default:
		return nil, raise("-", "expected 1 or 2 arguments, got %d", len(args))
	}
}

// mul is variadic with identity 1.
func mul(args []value.Value) (value.Value, error) {
	prod := 1.0
	for _, a := range args {
		n, err := asNumber("*", a)
		if err != nil {
			return nil, err
		}
		prod *= n
	}
	return value.Number(prod), nil
}

// div, called as the "/" builtin (as opposed to the fast DIV opcode
// path), follows IEEE-754 division-by-zero semantics, producing ±Infinity
// or NaN rather than a RuntimeError; only the fast DIV opcode raises.
func div(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("/", "expected 2 arguments, got %d", len(args))
	}
	a, err := asNumber("/", args[0])
	if err != nil {
		return nil, err
	}
	b, err := asNumber("/", args[1])
	if err != nil {
		return nil, err
	}
	return value.Number(a / b), nil
}

func mod(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("%", "expected 2 arguments, got %d", len(args))
	}
	a, err := asNumber("%", args[0])
	if err != nil {
		return nil, err
	}
	b, err := asNumber("%", args[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, raise("%", "division by zero")
	}
	return value.Number(math.Mod(a, b)), nil
}
