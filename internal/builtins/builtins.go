// Package builtins implements pex's host function table: strings,
// conversion, arrays, comparison, math, null-coalescing and regex
// operations, every one of them a *value.Function wrapping a Go closure
// the VM invokes directly through CALL/the fast arithmetic opcodes'
// fallback path. Each raises *vm.RuntimeError on an arity or type
// mismatch, naming the builtin and the offending value.
package builtins

import (
	"fmt"

	"github.com/just-be-dev/pex-sub001/internal/value"
	"github.com/just-be-dev/pex-sub001/internal/vm"
)

// Globals returns the builtin table in the shape internal/vm.New expects:
// a name -> Value map merged into LOAD_GLOBAL resolution.
func Globals() map[string]value.Value {
	out := map[string]value.Value{}
	for name, fn := range table {
		out[name] = &value.Function{Name: name, Builtin: fn}
	}
	return out
}

type builtinFunc = func(args []value.Value) (value.Value, error)

var table = map[string]builtinFunc{
	"split":     split,
	"join":      join,
	"trim":      trim,
	"upper":     upper,
	"lower":     lower,
	"replace":   replace,
	"substring": substring,
	"len":       length,

	"int":    toInt,
	"float":  toFloat,
	"string": toStringBuiltin,
	"bool":   toBoolBuiltin,

	"first": first,
	"last":  last,
	"get":   get,

	"==": eq,
	"!=": neq,
	"<":  lt,
	">":  gt,
	"<=": le,
	">=": ge,

	"+": add,
	"-": sub,
	"*": mul,
	"/": div,
	"%": mod,

	"not": not,
	"??":  coalesce,

	"match": match,
	"test":  test,

	"assert": assert,
}

func raise(name, format string, args ...any) error {
	return &vm.RuntimeError{Message: name + ": " + fmt.Sprintf(format, args...)}
}
