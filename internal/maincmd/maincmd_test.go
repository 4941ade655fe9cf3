package maincmd_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/just-be-dev/pex-sub001/internal/maincmd"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

const closureSrc = "testdata/in/closure.pex"

func runCmd(t *testing.T, fn func(*maincmd.Cmd, context.Context, mainer.Stdio, []string) error, files ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{}
	err := fn(c, context.Background(), stdio, files)
	return out.String(), errOut.String(), err
}

func TestTokenize(t *testing.T) {
	out, _, err := runCmd(t, (*maincmd.Cmd).Tokenize, closureSrc)
	require.NoError(t, err)
	require.Contains(t, out, "ident: let")
	require.Contains(t, out, "ident x")
	require.Contains(t, out, "number 10")
	require.Contains(t, out, "eof")
}

func TestParse(t *testing.T) {
	out, _, err := runCmd(t, (*maincmd.Cmd).Parse, closureSrc)
	require.NoError(t, err)
	require.Contains(t, out, "let x")
	require.Contains(t, out, "fn add(y)")
	require.Contains(t, out, "call")
}

func TestLowerShowsCapture(t *testing.T) {
	out, _, err := runCmd(t, (*maincmd.Cmd).Lower, closureSrc)
	require.NoError(t, err)
	require.Contains(t, out, "captures=[x]")
}

func TestBuildEmitsAssembly(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{Asm: true}
	err := c.Build(context.Background(), stdio, []string{closureSrc})
	require.NoError(t, err)
	require.Contains(t, out.String(), "program:")
	require.Contains(t, out.String(), "function:")
}

func TestRunExecutesClosure(t *testing.T) {
	out, _, err := runCmd(t, (*maincmd.Cmd).Run, closureSrc)
	require.NoError(t, err)
	require.Equal(t, "15", strings.TrimSpace(out))
}

func TestRunRecursiveFunction(t *testing.T) {
	out, _, err := runCmd(t, (*maincmd.Cmd).Run, "testdata/in/factorial.pex")
	require.NoError(t, err)
	require.Equal(t, "120", strings.TrimSpace(out))
}

func TestRunWithInputExpression(t *testing.T) {
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{}
	path := filepath.Join("testdata", "in", "echo_input.pex")
	err := c.Run(context.Background(), stdio, []string{path, "42"})
	require.NoError(t, err)
	require.Equal(t, "42", strings.TrimSpace(out.String()))
}
