package value

import (
	"math"
	"strconv"
	"strings"
)

// Truthy implements the truthy predicate: Null is false, Boolean is
// itself, Number is false for 0 and NaN, String is false for the empty
// string, everything else is true.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Null:
		return false
	case Boolean:
		return bool(x)
	case Number:
		f := float64(x)
		return f != 0 && !math.IsNaN(f)
	case String:
		return len(x) > 0
	default:
		return true
	}
}

// ToBoolean wraps Truthy in a Boolean value.
func ToBoolean(v Value) Boolean { return Boolean(Truthy(v)) }

// ToNumber implements the numeric coercion rules shared by arithmetic
// and comparison builtins.
func ToNumber(v Value) Number {
	switch x := v.(type) {
	case Number:
		return x
	case Boolean:
		if x {
			return 1
		}
		return 0
	case String:
		s := strings.TrimSpace(string(x))
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Number(math.NaN())
		}
		return Number(f)
	case Null:
		return 0
	default:
		return Number(math.NaN())
	}
}

// ToDisplayString implements the canonical display form used by the
// "string" builtin and the print effect.
func ToDisplayString(v Value) string { return v.String() }

// Equal implements structural equality: false across differing tags,
// structural for collections, reference identity for functions, and
// pattern+flags equality for regexes.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Boolean:
		y, ok := b.(Boolean)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && float64(x) == float64(y)
	case String:
		y, ok := b.(String)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i, e := range x.Elems {
			if !Equal(e, y.Elems[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		eq := true
		x.Each(func(k string, v Value) {
			if !eq {
				return
			}
			yv, found := y.Get(k)
			if !found || !Equal(v, yv) {
				eq = false
			}
		})
		return eq
	case *Regex:
		y, ok := b.(*Regex)
		return ok && x.Pattern == y.Pattern && x.Flags == y.Flags
	case *Function:
		y, ok := b.(*Function)
		return ok && x == y
	default:
		return false
	}
}

// Compare implements the ordering used by <, >, <=, >= : both operands
// are coerced to Number. It returns -1, 0 or +1; a NaN operand always
// yields false from every ordered comparison built on top of this,
// matching IEEE-754.
func Compare(a, b Value) (cmp int, hasNaN bool) {
	x, y := float64(ToNumber(a)), float64(ToNumber(b))
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, true
	}
	switch {
	case x < y:
		return -1, false
	case x > y:
		return 1, false
	default:
		return 0, false
	}
}
