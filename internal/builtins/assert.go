package builtins

import "github.com/just-be-dev/pex-sub001/internal/value"

// assert is the builtin the code generator substitutes for the "assert"
// effect: a failed assertion synthesizes a RuntimeError directly rather
// than round-tripping through an effect. A passing assertion is a
// null-valued no-op; like print/debug it exists for its side effect, not
// its result.
func assert(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("assert", "expected 1 argument, got %d", len(args))
	}
	if !value.Truthy(args[0]) {
		return nil, raise("assert", "assertion failed")
	}
	return value.NullValue, nil
}
