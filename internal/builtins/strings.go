package builtins

import (
	"strings"

	"github.com/just-be-dev/pex-sub001/internal/value"
)

func asString(name string, v value.Value) (string, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", raise(name, "expected a string, got %s", v.Type())
	}
	return string(s), nil
}

func asNumber(name string, v value.Value) (float64, error) {
	n, ok := v.(value.Number)
	if !ok {
		return 0, raise(name, "expected a number, got %s", v.Type())
	}
	return float64(n), nil
}

func asArray(name string, v value.Value) (*value.Array, error) {
	a, ok := v.(*value.Array)
	if !ok {
		return nil, raise(name, "expected an array, got %s", v.Type())
	}
	return a, nil
}

func split(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, raise("split", "expected 2 or 3 arguments, got %d", len(args))
	}
	s, err := asString("split", args[0])
	if err != nil {
		return nil, err
	}
	delim, err := asString("split", args[1])
	if err != nil {
		return nil, err
	}
	limit := -1
	if len(args) == 3 {
		n, err := asNumber("split", args[2])
		if err != nil {
			return nil, err
		}
		limit = int(n)
	}
	var parts []string
	if delim == "" {
		parts = strings.Split(s, "")
	} else if limit >= 0 {
		parts = strings.SplitN(s, delim, limit)
	} else {
		parts = strings.Split(s, delim)
	}
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = value.String(p)
	}
	return value.NewArray(elems), nil
}

// join concatenates an array's elements with no separator.
func join(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("join", "expected 1 argument, got %d", len(args))
	}
	arr, err := asArray("join", args[0])
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, e := range arr.Elems {
		s, ok := e.(value.String)
		if !ok {
			return nil, raise("join", "expected an array of strings, found %s", e.Type())
		}
		sb.WriteString(string(s))
	}
	return value.String(sb.String()), nil
}

func trim(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("trim", "expected 1 argument, got %d", len(args))
	}
	s, err := asString("trim", args[0])
	if err != nil {
		return nil, err
	}
	return value.String(strings.TrimSpace(s)), nil
}

func upper(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("upper", "expected 1 argument, got %d", len(args))
	}
	s, err := asString("upper", args[0])
	if err != nil {
		return nil, err
	}
	return value.String(strings.ToUpper(s)), nil
}

func lower(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("lower", "expected 1 argument, got %d", len(args))
	}
	s, err := asString("lower", args[0])
	if err != nil {
		return nil, err
	}
	return value.String(strings.ToLower(s)), nil
}

// replace accepts either a literal string or a *value.Regex as its pattern
// argument.
func replace(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return nil, raise("replace", "expected 3 arguments, got %d", len(args))
	}
	s, err := asString("replace", args[0])
	if err != nil {
		return nil, err
	}
	rep, err := asString("replace", args[2])
	if err != nil {
		return nil, err
	}
	if rx, ok := args[1].(*value.Regex); ok {
		re, err := rx.Compile()
		if err != nil {
			return nil, raise("replace", "invalid regex: %v", err)
		}
		count := 1
		if rx.HasFlag('g') {
			count = -1
		}
		out, err := re.Replace(s, rep, -1, count)
		if err != nil {
			return nil, raise("replace", "regex replace failed: %v", err)
		}
		return value.String(out), nil
	}
	pat, err := asString("replace", args[1])
	if err != nil {
		return nil, err
	}
	return value.String(strings.ReplaceAll(s, pat, rep)), nil
}

func substring(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, raise("substring", "expected 2 or 3 arguments, got %d", len(args))
	}
	s, err := asString("substring", args[0])
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	startF, err := asNumber("substring", args[1])
	if err != nil {
		return nil, err
	}
	start := clampIndex(int(startF), len(runes))
	end := len(runes)
	if len(args) == 3 {
		endF, err := asNumber("substring", args[2])
		if err != nil {
			return nil, err
		}
		end = clampIndex(int(endF), len(runes))
	}
	if end < start {
		end = start
	}
	return value.String(string(runes[start:end])), nil
}

func clampIndex(i, length int) int {
	if i < 0 {
		i = 0
	}
	if i > length {
		i = length
	}
	return i
}

func length(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("len", "expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case value.String:
		return value.Number(len([]rune(string(v)))), nil
	case *value.Array:
		return value.Number(v.Len()), nil
	default:
		return nil, raise("len", "expected a string or array, got %s", v.Type())
	}
}
