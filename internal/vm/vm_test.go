package vm_test

import (
	"testing"

	"github.com/just-be-dev/pex-sub001/internal/builtins"
	"github.com/just-be-dev/pex-sub001/internal/compiler"
	"github.com/just-be-dev/pex-sub001/internal/value"
	"github.com/just-be-dev/pex-sub001/internal/vm"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, asm string, input value.Value, handler vm.EffectHandler) (value.Value, error) {
	t.Helper()
	f, err := compiler.Asm([]byte(asm))
	require.NoError(t, err)
	if handler == nil {
		handler = vm.EffectHandlerFunc(func(name string, args []value.Value, resume vm.Resume) (value.Value, error) {
			t.Fatalf("unexpected effect %q", name)
			return nil, nil
		})
	}
	machine := vm.New(f, builtins.Globals(), handler)
	return machine.Run(input)
}

// (+ 1 2) with input = Null -> Number(3).
func TestAddConstants(t *testing.T) {
	const asm = `
program:
	entry: 0
	constants:
		float 1
		float 2

function: 0 params=1 locals=1
	code:
		load_const 0
		load_const 1
		add
		return
`
	got, err := run(t, asm, value.NullValue, nil)
	require.NoError(t, err)
	require.Equal(t, value.Number(3), got)
}

// Scenario 2: $$ echoes input unchanged.
func TestEchoInput(t *testing.T) {
	const asm = `
program:
	entry: 0

function: 0 params=1 locals=1
	code:
		load_local 0
		return
`
	got, err := run(t, asm, value.Number(42), nil)
	require.NoError(t, err)
	require.Equal(t, value.Number(42), got)
}

// DIV by zero raises a RuntimeError from the fast opcode path, unlike
// the "/" builtin which follows IEEE-754.
func TestFastDivByZeroRaises(t *testing.T) {
	const asm = `
program:
	entry: 0
	constants:
		float 1
		float 0

function: 0 params=1 locals=1
	code:
		load_const 0
		load_const 1
		div
		return
`
	_, err := run(t, asm, value.NullValue, nil)
	require.Error(t, err)
	require.IsType(t, &vm.RuntimeError{}, err)
}

// Closure capture: a closure observes the value its enclosing scope held
// when that scope closed.
//
//	function 0 (entry): x=10; make_closure of function 1 (add, captures
//	local 0); return it so the caller frame closes and the upvalue moves
//	from open to closed.
func TestClosureCaptureSurvivesReturn(t *testing.T) {
	const asm = `
program:
	entry: 0
	constants:
		float 10
		float 5

function: 0 params=1 locals=1
	code:
		load_const 0
		store_local 0
		make_closure 1
		return

function: 1 params=1 locals=1
	upvalues:
		local 0
	code:
		load_upvalue 0
		load_local 0
		add
		return
`
	f, err := compiler.Asm([]byte(asm))
	require.NoError(t, err)
	machine := vm.New(f, builtins.Globals(), vm.EffectHandlerFunc(func(string, []value.Value, vm.Resume) (value.Value, error) {
		t.Fatal("no effects expected")
		return nil, nil
	}))

	closure, err := machine.Run(value.NullValue)
	require.NoError(t, err)
	fn, ok := closure.(*value.Function)
	require.True(t, ok)
	require.False(t, fn.IsBuiltin())
	require.Equal(t, value.Number(10), fn.Upvalues[0].Get())
}

// Effect exactness: resume must be called exactly once; a handler that
// never resumes surfaces a HostError.
func TestEffectRoundTrip(t *testing.T) {
	const asm = `
program:
	entry: 0
	names:
		ask

function: 0 params=1 locals=1
	code:
		effect 0 0
		return
`
	calls := 0
	got, err := run(t, asm, value.NullValue, vm.EffectHandlerFunc(func(name string, args []value.Value, resume vm.Resume) (value.Value, error) {
		calls++
		require.Equal(t, "ask", name)
		return resume(value.Number(41))
	}))
	require.NoError(t, err)
	require.Equal(t, value.Number(41), got)
	require.Equal(t, 1, calls)
}

func TestEffectHandlerMustResume(t *testing.T) {
	const asm = `
program:
	entry: 0
	names:
		ask

function: 0 params=1 locals=1
	code:
		effect 0 0
		return
`
	_, err := run(t, asm, value.NullValue, vm.EffectHandlerFunc(func(name string, args []value.Value, resume vm.Resume) (value.Value, error) {
		return nil, nil // never calls resume
	}))
	require.Error(t, err)
	require.IsType(t, &vm.HostError{}, err)
}

// Frame discipline: CALL/RETURN of a builtin leaves the operand stack at
// its pre-call depth plus one.
func TestCallBuiltinLeavesOneResult(t *testing.T) {
	const asm = `
program:
	entry: 0
	constants:
		float 3
		float 4
	names:
		-

function: 0 params=1 locals=1
	code:
		load_const 0
		load_global 0
		load_const 1
		load_const 0
		call 2
		add
		return
`
	got, err := run(t, asm, value.NullValue, nil)
	require.NoError(t, err)
	require.Equal(t, value.Number(4), got)
}
