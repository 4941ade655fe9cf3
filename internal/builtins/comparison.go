package builtins

import "github.com/just-be-dev/pex-sub001/internal/value"

func eq(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("==", "expected 2 arguments, got %d", len(args))
	}
	return value.Boolean(value.Equal(args[0], args[1])), nil
}

func neq(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("!=", "expected 2 arguments, got %d", len(args))
	}
	return value.Boolean(!value.Equal(args[0], args[1])), nil
}

func lt(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("<", "expected 2 arguments, got %d", len(args))
	}
	cmp, nan := value.Compare(args[0], args[1])
	return value.Boolean(!nan && cmp < 0), nil
}

func gt(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise(">", "expected 2 arguments, got %d", len(args))
	}
	cmp, nan := value.Compare(args[0], args[1])
	return value.Boolean(!nan && cmp > 0), nil
}

func le(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("<=", "expected 2 arguments, got %d", len(args))
	}
	cmp, nan := value.Compare(args[0], args[1])
	return value.Boolean(!nan && cmp <= 0), nil
}

func ge(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise(">=", "expected 2 arguments, got %d", len(args))
	}
	cmp, nan := value.Compare(args[0], args[1])
	return value.Boolean(!nan && cmp >= 0), nil
}
