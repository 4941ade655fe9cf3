package builtins

import "github.com/just-be-dev/pex-sub001/internal/value"

func asRegex(name string, v value.Value) (*value.Regex, error) {
	rx, ok := v.(*value.Regex)
	if !ok {
		return nil, raise(name, "expected a regex, got %s", v.Type())
	}
	return rx, nil
}

// match returns an array of capture groups (group 0 is the whole match) or
// Null when the regex doesn't match.
func match(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("match", "expected 2 arguments, got %d", len(args))
	}
	s, err := asString("match", args[0])
	if err != nil {
		return nil, err
	}
	rx, err := asRegex("match", args[1])
	if err != nil {
		return nil, err
	}
	re, err := rx.Compile()
	if err != nil {
		return nil, raise("match", "invalid regex: %v", err)
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		return nil, raise("match", "regex match failed: %v", err)
	}
	if m == nil {
		return value.NullValue, nil
	}
	groups := m.Groups()
	elems := make([]value.Value, len(groups))
	for i, g := range groups {
		elems[i] = value.String(g.String())
	}
	return value.NewArray(elems), nil
}

func test(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, raise("test", "expected 2 arguments, got %d", len(args))
	}
	s, err := asString("test", args[0])
	if err != nil {
		return nil, err
	}
	rx, err := asRegex("test", args[1])
	if err != nil {
		return nil, err
	}
	re, err := rx.Compile()
	if err != nil {
		return nil, raise("test", "invalid regex: %v", err)
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		return nil, raise("test", "regex match failed: %v", err)
	}
	return value.Boolean(m != nil), nil
}
