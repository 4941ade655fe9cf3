// Package compiler implements pex's code generator: it lowers an IR
// module (internal/ir) into a container.File — one function template per
// ir.Fn plus a synthesized zero-parameter top-level template, each owning
// a contiguous window of a single flat code buffer.
//
// The opcode set, environment model (local slot table + upvalue table +
// constant/name interning) and per-template emission loop follow a
// single Opcode byte plus operand layout, using a small fixed
// instruction set with fixed u16/u8/i16 operands rather than LEB128
// varints, since the bytecode format fixes operand widths per opcode.
package compiler

import "fmt"

type Opcode byte

const (
	LOAD_CONST Opcode = iota
	LOAD_LOCAL
	STORE_LOCAL
	LOAD_UPVALUE
	STORE_UPVALUE
	LOAD_GLOBAL
	MAKE_CLOSURE
	CALL
	TAIL_CALL
	RETURN
	JUMP
	JUMP_IF_FALSE
	POP
	EFFECT
	NEG
	ADD
	SUB
	MUL
	DIV
	MOD
)

var opcodeNames = [...]string{
	LOAD_CONST:    "load_const",
	LOAD_LOCAL:    "load_local",
	STORE_LOCAL:   "store_local",
	LOAD_UPVALUE:  "load_upvalue",
	STORE_UPVALUE: "store_upvalue",
	LOAD_GLOBAL:   "load_global",
	MAKE_CLOSURE:  "make_closure",
	CALL:          "call",
	TAIL_CALL:     "tail_call",
	RETURN:        "return",
	JUMP:          "jump",
	JUMP_IF_FALSE: "jump_if_false",
	POP:           "pop",
	EFFECT:        "effect",
	NEG:           "neg",
	ADD:           "add",
	SUB:           "sub",
	MUL:           "mul",
	DIV:           "div",
	MOD:           "mod",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

var reverseOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = Opcode(op)
	}
	return m
}()

// fastBinaryOp maps an IR arithmetic builtin name to its fast-path opcode,
// used when compiling a Call whose callee is one of the arithmetic
// operators and both static shape and runtime operand types (checked at
// execution time by the VM) allow the fast numeric path.
var fastBinaryOp = map[string]Opcode{
	"+": ADD,
	"-": SUB,
	"*": MUL,
	"/": DIV,
	"%": MOD,
}
