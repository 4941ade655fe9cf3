package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const addOneProgram = `
program:
	entry: 0
	constants:
		float 1

function: 0 params=0 locals=1
	code:
		load_local 0
		load_const 0
		add
		return
`

func TestAsmParsesSimpleFunction(t *testing.T) {
	f, err := Asm([]byte(addOneProgram))
	require.NoError(t, err)
	require.Equal(t, uint32(0), f.EntryPoint)
	require.Len(t, f.Constants, 1)
	require.Len(t, f.Functions, 1)
	require.Equal(t, uint32(0), f.Functions[0].ParamCount)
	require.Equal(t, uint32(1), f.Functions[0].LocalCount)
}

func TestAsmDasmRoundTripsJumps(t *testing.T) {
	src := `
program:
	entry: 0
	constants:
		true
		float 1
		float 2

function: 0 params=0 locals=0
	code:
		load_const 0
		jump_if_false 2
		load_const 1
		jump 3
		load_const 2
		return
`
	f, err := Asm([]byte(src))
	require.NoError(t, err)

	out, err := Dasm(f)
	require.NoError(t, err)

	f2, err := Asm(out)
	require.NoError(t, err)
	require.Equal(t, f.Code, f2.Code)
	require.Equal(t, f.Functions, f2.Functions)
}

func TestAsmParsesUpvaluesAndClosures(t *testing.T) {
	src := `
program:
	entry: 0

function: 0 params=0 locals=1
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
	f, err := Asm([]byte(src))
	require.NoError(t, err)
	require.Len(t, f.Functions, 2)
	require.Len(t, f.Functions[1].Upvalues, 1)
	require.True(t, f.Functions[1].Upvalues[0].IsLocal)
}

func TestAsmParsesEffect(t *testing.T) {
	src := `
program:
	entry: 0
	names:
		print

function: 0 params=0 locals=0
	code:
		load_const 0
		effect 0 1
		return
`
	f, err := Asm([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []string{"print"}, f.Names)
}

func TestAsmRejectsUnknownOpcode(t *testing.T) {
	src := `
program:
	entry: 0

function: 0 params=0 locals=0
	code:
		frobnicate
`
	_, err := Asm([]byte(src))
	require.Error(t, err)
}
