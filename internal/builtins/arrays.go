package builtins

import "github.com/just-be-dev/pex-sub001/internal/value"

func first(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("first", "expected 1 argument, got %d", len(args))
	}
	arr, err := asArray("first", args[0])
	if err != nil {
		return nil, err
	}
	if arr.Len() == 0 {
		return value.NullValue, nil
	}
	return arr.Elems[0], nil
}

func last(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, raise("last", "expected 1 argument, got %d", len(args))
	}
	arr, err := asArray("last", args[0])
	if err != nil {
		return nil, err
	}
	if arr.Len() == 0 {
		return value.NullValue, nil
	}
	return arr.Elems[arr.Len()-1], nil
}

// get indexes an Array by number or an Object by string key, returning def
// (Null if omitted) when the index/key is absent — the generalization the
// IR lowerer's "$N" desugaring (Call(Var("get"), [Var("input"), Const(N)]))
// relies on to index into the program's input value.
func get(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, raise("get", "expected 2 or 3 arguments, got %d", len(args))
	}
	def := value.Value(value.NullValue)
	if len(args) == 3 {
		def = args[2]
	}
	switch coll := args[0].(type) {
	case *value.Array:
		n, err := asNumber("get", args[1])
		if err != nil {
			return nil, err
		}
		i := int(n)
		if i < 0 || i >= coll.Len() {
			return def, nil
		}
		return coll.Index(i), nil
	case *value.Object:
		key, err := asString("get", args[1])
		if err != nil {
			return nil, err
		}
		if v, ok := coll.Get(key); ok {
			return v, nil
		}
		return def, nil
	default:
		return nil, raise("get", "expected an array or object, got %s", coll.Type())
	}
}
