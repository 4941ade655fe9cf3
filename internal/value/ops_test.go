package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{NullValue, false},
		{Boolean(false), false},
		{Boolean(true), true},
		{Number(0), false},
		{Number(math.NaN()), false},
		{Number(1), true},
		{Number(-1), true},
		{String(""), false},
		{String("x"), true},
		{NewArray(nil), true},
		{&Function{Name: "f"}, true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Truthy(c.v), "%v", c.v)
	}
}

func TestToNumber(t *testing.T) {
	require.Equal(t, Number(1), ToNumber(Boolean(true)))
	require.Equal(t, Number(0), ToNumber(Boolean(false)))
	require.Equal(t, Number(0), ToNumber(NullValue))
	require.Equal(t, Number(42), ToNumber(String("42")))
	require.Equal(t, Number(0), ToNumber(String("")))
	require.True(t, math.IsNaN(float64(ToNumber(String("nope")))))
	require.True(t, math.IsNaN(float64(ToNumber(NewArray(nil)))))
}

func TestEqual(t *testing.T) {
	require.True(t, Equal(NullValue, NullValue))
	require.False(t, Equal(NullValue, Boolean(false)))
	require.True(t, Equal(Number(1), Number(1)))
	require.True(t, Equal(String("a"), String("a")))
	require.True(t, Equal(NewArray([]Value{Number(1), String("x")}), NewArray([]Value{Number(1), String("x")})))
	require.False(t, Equal(NewArray([]Value{Number(1)}), NewArray([]Value{Number(2)})))
	require.True(t, Equal(&Regex{Pattern: "a", Flags: "i"}, &Regex{Pattern: "a", Flags: "i"}))
	require.False(t, Equal(&Regex{Pattern: "a"}, &Regex{Pattern: "b"}))

	f := &Function{Name: "f"}
	require.True(t, Equal(f, f))
	require.False(t, Equal(f, &Function{Name: "f"}))
}

func TestCompareNaNPropagates(t *testing.T) {
	_, hasNaN := Compare(String("nope"), Number(1))
	require.True(t, hasNaN)

	cmp, hasNaN := Compare(Number(1), Number(2))
	require.False(t, hasNaN)
	require.Equal(t, -1, cmp)
}

func TestObjectPreservesInsertionOrderAndSupportsLookup(t *testing.T) {
	o := NewObject(0)
	o.Set("b", Number(2))
	o.Set("a", Number(1))

	var keys []string
	o.Each(func(k string, v Value) { keys = append(keys, k) })
	require.Equal(t, []string{"b", "a"}, keys)

	v, ok := o.Get("a")
	require.True(t, ok)
	require.Equal(t, Number(1), v)

	_, ok = o.Get("missing")
	require.False(t, ok)
}
