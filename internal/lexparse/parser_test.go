package lexparse

import (
	"testing"

	"github.com/just-be-dev/pex-sub001/internal/ast"
	"github.com/stretchr/testify/require"
)

func TestParseArithmeticCall(t *testing.T) {
	f, err := Parse("(+ 1 2)", 0)
	require.NoError(t, err)
	require.Len(t, f.Body, 1)
	call, ok := f.Body[0].(*ast.Call)
	require.True(t, ok)
	callee, ok := call.Callee.(*ast.Ident)
	require.True(t, ok)
	require.Equal(t, "+", callee.Name)
	require.Len(t, call.Args, 2)
}

func TestParseSourceRef(t *testing.T) {
	f, err := Parse("$$", 0)
	require.NoError(t, err)
	ref, ok := f.Body[0].(*ast.SourceRef)
	require.True(t, ok)
	require.True(t, ref.Whole)

	f, err = Parse("$1", 0)
	require.NoError(t, err)
	ref, ok = f.Body[0].(*ast.SourceRef)
	require.True(t, ok)
	require.False(t, ref.Whole)
	require.Equal(t, 1, ref.Index)
}

func TestParseLetChain(t *testing.T) {
	f, err := Parse("let: x 10; let: y 20; (+ x y)", 0)
	require.NoError(t, err)
	require.Len(t, f.Body, 1)
	letX, ok := f.Body[0].(*ast.Let)
	require.True(t, ok)
	require.Equal(t, "x", letX.Name)
	require.Len(t, letX.Rest, 1)

	letY, ok := letX.Rest[0].(*ast.Let)
	require.True(t, ok)
	require.Equal(t, "y", letY.Name)
	require.Len(t, letY.Rest, 1)

	_, ok = letY.Rest[0].(*ast.Call)
	require.True(t, ok)
}

func TestParseAndShortCircuitShape(t *testing.T) {
	f, err := Parse("let: x false; (and x (/ 1 0))", 0)
	require.NoError(t, err)
	letX := f.Body[0].(*ast.Let)
	require.Len(t, letX.Rest, 1)
	and, ok := letX.Rest[0].(*ast.And)
	require.True(t, ok)
	_, ok = and.Left.(*ast.Ident)
	require.True(t, ok)
	_, ok = and.Right.(*ast.Call)
	require.True(t, ok)
}

func TestParseEffectExprSugar(t *testing.T) {
	f, err := Parse("let: x (effect ask); (+ x 1)", 0)
	require.NoError(t, err)
	letX := f.Body[0].(*ast.Let)
	eff, ok := letX.Value.(*ast.Effect)
	require.True(t, ok)
	require.Equal(t, "ask", eff.Name)
	require.Empty(t, eff.Args)
}

func TestParseEffectStatementForm(t *testing.T) {
	f, err := Parse(`print: "hi"`, 0)
	require.NoError(t, err)
	eff, ok := f.Body[0].(*ast.Effect)
	require.True(t, ok)
	require.Equal(t, "print", eff.Name)
	require.Len(t, eff.Args, 1)
}

func TestParseFnAndClosureCapture(t *testing.T) {
	src := "let: x 10; fn: make (y) (fn (z) (+ x (+ y z))); let: f (make 20); (f 30)"
	f, err := Parse(src, 0)
	require.NoError(t, err)
	letX := f.Body[0].(*ast.Let)
	fn, ok := letX.Rest[0].(*ast.Fn)
	require.True(t, ok)
	require.Equal(t, "make", fn.Name)
	require.Equal(t, []string{"y"}, fn.Params)
	require.Len(t, fn.Body, 1)

	inner, ok := fn.Body[0].(*ast.FnExpr)
	require.True(t, ok)
	require.Equal(t, []string{"z"}, inner.Params)

	letF, ok := fn.Rest[0].(*ast.Let)
	require.True(t, ok)
	require.Equal(t, "f", letF.Name)
	_, ok = letF.Rest[0].(*ast.Call)
	require.True(t, ok)
}

func TestParsePipelineDesugarsToNestedCall(t *testing.T) {
	f, err := Parse("$$ | upper | trim", 0)
	require.NoError(t, err)
	outer, ok := f.Body[0].(*ast.Call)
	require.True(t, ok)
	outerCallee, ok := outer.Callee.(*ast.Ident)
	require.True(t, ok)
	require.Equal(t, "trim", outerCallee.Name)
	require.Len(t, outer.Args, 1)

	inner, ok := outer.Args[0].(*ast.Call)
	require.True(t, ok)
	innerCallee, ok := inner.Callee.(*ast.Ident)
	require.True(t, ok)
	require.Equal(t, "upper", innerCallee.Name)
	require.Len(t, inner.Args, 1)
	_, ok = inner.Args[0].(*ast.SourceRef)
	require.True(t, ok)
}

func TestParsePipelineWithExplicitSlot(t *testing.T) {
	f, err := Parse(`$$ | (replace $ "a" "b")`, 0)
	require.NoError(t, err)
	call, ok := f.Body[0].(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 3)
	_, ok = call.Args[0].(*ast.SourceRef)
	require.True(t, ok)
}

func TestShellModeInjectsInput(t *testing.T) {
	f, err := Parse("upper", ShellMode)
	require.NoError(t, err)
	call, ok := f.Body[0].(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
	_, ok = call.Args[0].(*ast.SourceRef)
	require.True(t, ok)
}

func TestShellModeSkipsWhenSourceRefPresent(t *testing.T) {
	f, err := Parse("(+ $$ 1)", ShellMode)
	require.NoError(t, err)
	call := f.Body[0].(*ast.Call)
	require.Len(t, call.Args, 2)
}

func TestParseRegexLiteral(t *testing.T) {
	f, err := Parse(`(match "abc" /a.c/i)`, 0)
	require.NoError(t, err)
	call := f.Body[0].(*ast.Call)
	require.Len(t, call.Args, 2)
	lit, ok := call.Args[1].(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, ast.LitRegex, lit.Kind)
	require.Equal(t, "a.c", lit.Regex.Pattern)
	require.Equal(t, "i", lit.Regex.Flags)
}

func TestParseIfExpression(t *testing.T) {
	f, err := Parse(`(if true 1 2)`, 0)
	require.NoError(t, err)
	ifn, ok := f.Body[0].(*ast.If)
	require.True(t, ok)
	require.NotNil(t, ifn.Else)
}
