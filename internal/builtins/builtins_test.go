package builtins_test

import (
	"math"
	"testing"

	"github.com/just-be-dev/pex-sub001/internal/builtins"
	"github.com/just-be-dev/pex-sub001/internal/value"
	"github.com/just-be-dev/pex-sub001/internal/vm"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	g := builtins.Globals()
	fn, ok := g[name]
	require.True(t, ok, "no builtin named %q", name)
	f, ok := fn.(*value.Function)
	require.True(t, ok)
	require.True(t, f.IsBuiltin())
	return f.Builtin(args)
}

func TestAddIsVariadicWithZeroIdentity(t *testing.T) {
	got, err := call(t, "+")
	require.NoError(t, err)
	require.Equal(t, value.Number(0), got)

	got, err = call(t, "+", value.Number(1), value.Number(2), value.Number(3))
	require.NoError(t, err)
	require.Equal(t, value.Number(6), got)
}

func TestMulIsVariadicWithOneIdentity(t *testing.T) {
	got, err := call(t, "*")
	require.NoError(t, err)
	require.Equal(t, value.Number(1), got)

	got, err = call(t, "*", value.Number(2), value.Number(3), value.Number(4))
	require.NoError(t, err)
	require.Equal(t, value.Number(24), got)
}

func TestSubUnaryNegation(t *testing.T) {
	got, err := call(t, "-", value.Number(5))
	require.NoError(t, err)
	require.Equal(t, value.Number(-5), got)
}

func TestSubWrongArityRaisesRuntimeError(t *testing.T) {
	_, err := call(t, "-", value.Number(1), value.Number(2), value.Number(3))
	require.Error(t, err)
	require.IsType(t, &vm.RuntimeError{}, err)
}

// The "/" builtin follows IEEE-754 (+Inf on division by zero), unlike the
// VM's fast DIV opcode which raises.
func TestDivBuiltinFollowsIEEE754(t *testing.T) {
	got, err := call(t, "/", value.Number(1), value.Number(0))
	require.NoError(t, err)
	require.Equal(t, value.Number(math.Inf(1)), got)
}

func TestModByZeroRaises(t *testing.T) {
	_, err := call(t, "%", value.Number(1), value.Number(0))
	require.Error(t, err)
	require.IsType(t, &vm.RuntimeError{}, err)
}

func TestTypeMismatchNamesTheBuiltinAndType(t *testing.T) {
	_, err := call(t, "+", value.String("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "+:")
	require.Contains(t, err.Error(), "string")
}

func TestCoalesceReturnsFirstNonNull(t *testing.T) {
	got, err := call(t, "??", value.NullValue, value.Number(7))
	require.NoError(t, err)
	require.Equal(t, value.Number(7), got)

	got, err = call(t, "??", value.Number(1), value.Number(7))
	require.NoError(t, err)
	require.Equal(t, value.Number(1), got)
}

func TestComparisonOperators(t *testing.T) {
	got, err := call(t, "<", value.Number(1), value.Number(2))
	require.NoError(t, err)
	require.Equal(t, value.Boolean(true), got)

	got, err = call(t, "==", value.String("a"), value.String("a"))
	require.NoError(t, err)
	require.Equal(t, value.Boolean(true), got)
}

func TestGetIndexesArrayWithDefault(t *testing.T) {
	arr := value.NewArray([]value.Value{value.Number(10), value.Number(20)})
	got, err := call(t, "get", arr, value.Number(5), value.String("default"))
	require.NoError(t, err)
	require.Equal(t, value.String("default"), got)

	got, err = call(t, "get", arr, value.Number(1))
	require.NoError(t, err)
	require.Equal(t, value.Number(20), got)
}

func TestFirstLastOnEmptyArrayReturnNull(t *testing.T) {
	empty := value.NewArray(nil)
	got, err := call(t, "first", empty)
	require.NoError(t, err)
	require.Equal(t, value.NullValue, got)

	got, err = call(t, "last", empty)
	require.NoError(t, err)
	require.Equal(t, value.NullValue, got)
}

func TestSplitJoinRoundTrip(t *testing.T) {
	got, err := call(t, "split", value.String("a,b,c"), value.String(","))
	require.NoError(t, err)
	arr, ok := got.(*value.Array)
	require.True(t, ok)
	require.Equal(t, 3, arr.Len())

	joined, err := call(t, "join", arr)
	require.NoError(t, err)
	require.Equal(t, value.String("abc"), joined)
}

func TestAssertFailureRaisesRuntimeError(t *testing.T) {
	_, err := call(t, "assert", value.Boolean(false))
	require.Error(t, err)
	require.IsType(t, &vm.RuntimeError{}, err)

	got, err := call(t, "assert", value.Boolean(true))
	require.NoError(t, err)
	require.Equal(t, value.NullValue, got)
}

func TestIntTruncatesTowardZero(t *testing.T) {
	got, err := call(t, "int", value.Number(3.9))
	require.NoError(t, err)
	require.Equal(t, value.Number(3), got)

	got, err = call(t, "int", value.Number(-3.9))
	require.NoError(t, err)
	require.Equal(t, value.Number(-3), got)
}

func TestRegexMatchAndTest(t *testing.T) {
	rx := &value.Regex{Pattern: `\d+`}
	got, err := call(t, "test", value.String("abc123"), rx)
	require.NoError(t, err)
	require.Equal(t, value.Boolean(true), got)

	got, err = call(t, "match", value.String("abc123"), rx)
	require.NoError(t, err)
	arr, ok := got.(*value.Array)
	require.True(t, ok)
	require.Equal(t, value.String("123"), arr.Elems[0])

	got, err = call(t, "test", value.String("abc"), rx)
	require.NoError(t, err)
	require.Equal(t, value.Boolean(false), got)
}
