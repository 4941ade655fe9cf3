package builtins

import "github.com/just-be-dev/pex-sub001/internal/value"

func not(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("not", "expected 1 argument, got %d", len(args))
	}
	return value.Boolean(!value.Truthy(args[0])), nil
}

// coalesce implements "??": unlike and/or, this is an ordinary eager
// builtin call, not a compiler-level short-circuit form, so both
// arguments are already evaluated by the time it runs.
func coalesce(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("??", "expected 2 arguments, got %d", len(args))
	}
	if _, isNull := args[0].(value.Null); isNull {
		return args[1], nil
	}
	return args[0], nil
}
