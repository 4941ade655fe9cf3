package lower_test

import (
	"testing"

	"github.com/just-be-dev/pex-sub001/internal/ir"
	"github.com/just-be-dev/pex-sub001/internal/lexparse"
	"github.com/just-be-dev/pex-sub001/internal/lower"
	"github.com/stretchr/testify/require"
)

func lowerSrc(t *testing.T, src string) *ir.Module {
	t.Helper()
	f, err := lexparse.Parse(src, 0)
	require.NoError(t, err)
	mod, err := lower.Lower(f)
	require.NoError(t, err)
	return mod
}

// findFn walks body depth-first looking for the first *ir.Fn named name.
func findFn(e ir.Expr, name string) *ir.Fn {
	switch n := e.(type) {
	case *ir.Fn:
		if n.Name == name {
			return n
		}
		return findFn(n.Body, name)
	case *ir.Let:
		if fn, ok := n.Value.(*ir.Fn); ok && fn.Name == name {
			return fn
		}
		if found := findFn(n.Value, name); found != nil {
			return found
		}
		return findFn(n.Body, name)
	case *ir.Seq:
		for _, x := range n.Exprs {
			if found := findFn(x, name); found != nil {
				return found
			}
		}
	case *ir.If:
		if found := findFn(n.Cond, name); found != nil {
			return found
		}
		if found := findFn(n.Then, name); found != nil {
			return found
		}
		if n.Else != nil {
			return findFn(n.Else, name)
		}
	case *ir.Call:
		if found := findFn(n.Callee, name); found != nil {
			return found
		}
		for _, a := range n.Args {
			if found := findFn(a, name); found != nil {
				return found
			}
		}
	case *ir.Effect:
		for _, a := range n.Args {
			if found := findFn(a, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// A function body referencing an enclosing let-binding captures it.
func TestCaptureOfEnclosingLet(t *testing.T) {
	mod := lowerSrc(t, "let: x 10; fn: add (y) (+ x y); (add 5)")
	add := findFn(mod.Body, "add")
	require.NotNil(t, add)
	require.Equal(t, []string{"x"}, add.Captures)
}

// A parameter never appears in its own function's capture list.
func TestParamIsNotCaptured(t *testing.T) {
	mod := lowerSrc(t, "fn: id (x) x; (id 1)")
	id := findFn(mod.Body, "id")
	require.NotNil(t, id)
	require.Empty(t, id.Captures)
}

// Captures are listed in source-first-use order, not declaration order.
func TestCaptureOrderIsFirstUse(t *testing.T) {
	mod := lowerSrc(t, "let: a 1; let: b 2; fn: f () (+ b a); (f)")
	fn := findFn(mod.Body, "f")
	require.NotNil(t, fn)
	require.Equal(t, []string{"b", "a"}, fn.Captures)
}

// A binding captured through two levels of nested functions is chained:
// the inner function captures it directly, and the middle function
// captures it too since it must forward it into its own upvalue table.
func TestNestedCaptureChainsThroughIntermediateFn(t *testing.T) {
	mod := lowerSrc(t, "let: x 1; fn: outer () (fn: inner () x; (inner)); (outer)")
	outer := findFn(mod.Body, "outer")
	require.NotNil(t, outer)
	require.Equal(t, []string{"x"}, outer.Captures)

	inner := findFn(outer.Body, "inner")
	require.NotNil(t, inner)
	require.Equal(t, []string{"x"}, inner.Captures)
}

// A self-recursive call inside a named function's body captures the
// function's own name like any other enclosing-scope reference.
func TestRecursiveSelfCallIsCaptured(t *testing.T) {
	mod := lowerSrc(t, "fn: fact (n) (if (<= n 1) 1 (* n (fact (- n 1)))); (fact 5)")
	fact := findFn(mod.Body, "fact")
	require.NotNil(t, fact)
	require.Contains(t, fact.Captures, "fact")
}

// A reference to a global/builtin name is not treated as a capture.
func TestBuiltinReferenceIsNotCaptured(t *testing.T) {
	mod := lowerSrc(t, "fn: f (x) (+ x 1); (f 2)")
	fn := findFn(mod.Body, "f")
	require.NotNil(t, fn)
	require.NotContains(t, fn.Captures, "+")
}

// $$ desugars to a reference to the implicit top-level input binding.
func TestDollarDollarIsInputReference(t *testing.T) {
	mod := lowerSrc(t, "$$")
	v, ok := mod.Body.(*ir.Var)
	require.True(t, ok)
	require.NotEmpty(t, v.Name)
}
