package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/just-be-dev/pex-sub001/internal/container"
	"github.com/just-be-dev/pex-sub001/internal/ir"
)

// Compile lowers an IR module to a container.File. The top-level module
// body becomes a synthesized zero-parameter function template, always
// allocated as template index 0 — fixed up front rather than prepended
// afterward, which avoids an off-by-one drift some reference generators
// are prone to: every MAKE_CLOSURE operand is assigned against the
// template array's *final* layout from the moment it is emitted, because
// nothing is inserted ahead of it later.
func Compile(mod *ir.Module) (*container.File, error) {
	e := newEmitter()

	// Reserve template 0 for the entry point before compiling anything.
	entryIdx := e.reserveTemplate()

	entryFe := newFuncEnv(e, nil, []string{"input"}, nil)
	// input occupies local slot 0 but is not a declared parameter: the
	// entry template has paramCount 0.
	entryFe.paramCount = 0
	if err := compileTail(entryFe, mod.Body); err != nil {
		return nil, err
	}
	e.finalizeTemplate(entryIdx, -1, entryFe)

	return e.build(uint32(entryIdx)), nil
}

// --- emitter: whole-program state ---

type emitter struct {
	templates []*wipTemplate

	constants  []container.Constant
	constIndex map[constKey]int

	names     []string
	nameIndex map[string]int
}

type wipTemplate struct {
	nameIndex  int32
	paramCount uint32
	localCount uint32
	upvalues   []container.Upvalue
	code       []byte
}

type constKey struct {
	tag         container.ConstTag
	num         float64
	str1, str2  string
}

func newEmitter() *emitter {
	return &emitter{constIndex: map[constKey]int{}, nameIndex: map[string]int{}}
}

func (e *emitter) reserveTemplate() int {
	e.templates = append(e.templates, &wipTemplate{})
	return len(e.templates) - 1
}

func (e *emitter) finalizeTemplate(idx int, nameIndex int32, fe *funcEnv) {
	t := e.templates[idx]
	t.nameIndex = nameIndex
	t.paramCount = uint32(fe.paramCount)
	t.localCount = uint32(fe.nextSlot)
	t.upvalues = fe.upvalues
	t.code = fe.buf
}

func (e *emitter) internConst(c container.Constant) int {
	k := constKey{tag: c.Tag}
	switch c.Tag {
	case container.ConstInt32:
		k.num = float64(c.Int32)
	case container.ConstFloat64:
		k.num = c.Float64
	case container.ConstString:
		k.str1 = c.Str
	case container.ConstRegex:
		k.str1, k.str2 = c.Str, c.Flags
	}
	if idx, ok := e.constIndex[k]; ok {
		return idx
	}
	idx := len(e.constants)
	e.constants = append(e.constants, c)
	e.constIndex[k] = idx
	return idx
}

func (e *emitter) internName(name string) int {
	if idx, ok := e.nameIndex[name]; ok {
		return idx
	}
	idx := len(e.names)
	e.names = append(e.names, name)
	e.nameIndex[name] = idx
	return idx
}

func (e *emitter) build(entryPoint uint32) *container.File {
	f := &container.File{
		VersionMajor: container.VersionMajor,
		VersionMinor: container.VersionMinor,
		EntryPoint:   entryPoint,
		Constants:    e.constants,
		Names:        e.names,
	}
	var code []byte
	for _, t := range e.templates {
		off := uint32(len(code))
		code = append(code, t.code...)
		f.Functions = append(f.Functions, container.FunctionTemplate{
			NameIndex:  t.nameIndex,
			ParamCount: t.paramCount,
			LocalCount: t.localCount,
			Upvalues:   t.upvalues,
			CodeOffset: off,
			CodeLength: uint32(len(t.code)),
		})
	}
	f.Code = code
	return f
}

// --- funcEnv: per-function compilation state ---

type funcEnv struct {
	e      *emitter
	parent *funcEnv

	buf []byte

	paramCount int
	nextSlot   int
	locals     map[string]int
	shadow     []shadowEntry

	captures     []string
	captureIndex map[string]int
	upvalues     []container.Upvalue
}

type shadowEntry struct {
	name    string
	hadPrev bool
	prev    int
}

func newFuncEnv(e *emitter, parent *funcEnv, params []string, captures []string) *funcEnv {
	fe := &funcEnv{
		e:            e,
		parent:       parent,
		locals:       map[string]int{},
		captures:     captures,
		captureIndex: map[string]int{},
	}
	for i, p := range params {
		fe.locals[p] = i
	}
	fe.paramCount = len(params)
	fe.nextSlot = len(params)
	for i, c := range captures {
		fe.captureIndex[c] = i
	}
	return fe
}

func (fe *funcEnv) declareLocal(name string) int {
	slot := fe.nextSlot
	fe.nextSlot++
	prev, had := fe.locals[name]
	fe.shadow = append(fe.shadow, shadowEntry{name: name, hadPrev: had, prev: prev})
	fe.locals[name] = slot
	return slot
}

func (fe *funcEnv) popLocal() {
	n := len(fe.shadow) - 1
	entry := fe.shadow[n]
	fe.shadow = fe.shadow[:n]
	if entry.hadPrev {
		fe.locals[entry.name] = entry.prev
	} else {
		delete(fe.locals, entry.name)
	}
}

// --- raw emission helpers ---

func (fe *funcEnv) emitOp(op Opcode) {
	fe.buf = append(fe.buf, byte(op))
}

func (fe *funcEnv) emitU16(op Opcode, arg int) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(arg))
	fe.buf = append(fe.buf, byte(op), b[0], b[1])
}

func (fe *funcEnv) emitU8(op Opcode, arg int) {
	fe.buf = append(fe.buf, byte(op), byte(arg))
}

func (fe *funcEnv) emitEffect(nameIdx, argc int) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(nameIdx))
	fe.buf = append(fe.buf, byte(EFFECT), b[0], b[1], byte(argc))
}

// emitJump reserves space for a jump's i16 operand and returns its offset in
// fe.buf for later patching.
func (fe *funcEnv) emitJump(op Opcode) int {
	fe.buf = append(fe.buf, byte(op), 0, 0)
	return len(fe.buf) - 2
}

func (fe *funcEnv) patchJump(operandPos int) {
	target := len(fe.buf)
	rel := target - (operandPos + 2)
	binary.LittleEndian.PutUint16(fe.buf[operandPos:operandPos+2], uint16(int16(rel)))
}

// --- expression compilation ---

// compileExpr compiles e such that it leaves exactly one value on the
// operand stack.
func compileExpr(fe *funcEnv, e ir.Expr) error {
	switch n := e.(type) {
	case *ir.Const:
		idx := fe.e.internConst(constOf(n.Value))
		fe.emitU16(LOAD_CONST, idx)
		return nil

	case *ir.Var:
		return compileVarLoad(fe, n.Name)

	case *ir.If:
		if err := compileExpr(fe, n.Cond); err != nil {
			return err
		}
		falsePos := fe.emitJump(JUMP_IF_FALSE)
		if err := compileExpr(fe, n.Then); err != nil {
			return err
		}
		endPos := fe.emitJump(JUMP)
		fe.patchJump(falsePos)
		if err := compileExpr(fe, n.Else); err != nil {
			return err
		}
		fe.patchJump(endPos)
		return nil

	case *ir.Let:
		slot := fe.declareLocal(n.Name)
		if err := compileExpr(fe, n.Value); err != nil {
			return err
		}
		fe.emitU16(STORE_LOCAL, slot)
		if err := compileExpr(fe, n.Body); err != nil {
			return err
		}
		fe.popLocal()
		return nil

	case *ir.Seq:
		for i, s := range n.Exprs {
			if i == len(n.Exprs)-1 {
				if err := compileExpr(fe, s); err != nil {
					return err
				}
				continue
			}
			if err := compileExpr(fe, s); err != nil {
				return err
			}
			fe.emitOp(POP)
		}
		return nil

	case *ir.Call:
		return compileCall(fe, n, false)

	case *ir.Fn:
		return compileFn(fe, n)

	case *ir.Effect:
		return compileEffect(fe, n, false)

	default:
		return fmt.Errorf("compiler: unsupported IR node %T", e)
	}
}

// compileTail compiles e as the tail of a function body: a Call in tail
// position emits TAIL_CALL (reusing the current frame) instead of CALL,
// except the fast arithmetic forms, which emit their opcode followed by
// RETURN; every other leaf ends with an explicit RETURN.
func compileTail(fe *funcEnv, e ir.Expr) error {
	switch n := e.(type) {
	case *ir.If:
		if err := compileExpr(fe, n.Cond); err != nil {
			return err
		}
		falsePos := fe.emitJump(JUMP_IF_FALSE)
		if err := compileTail(fe, n.Then); err != nil {
			return err
		}
		// Then-branch is terminal (TAIL_CALL or RETURN); no JUMP-to-end needed.
		fe.patchJump(falsePos)
		return compileTail(fe, n.Else)

	case *ir.Let:
		slot := fe.declareLocal(n.Name)
		if err := compileExpr(fe, n.Value); err != nil {
			return err
		}
		fe.emitU16(STORE_LOCAL, slot)
		if err := compileTail(fe, n.Body); err != nil {
			return err
		}
		fe.popLocal()
		return nil

	case *ir.Seq:
		if len(n.Exprs) == 0 {
			fe.emitU16(LOAD_CONST, fe.e.internConst(container.Constant{Tag: container.ConstNull}))
			fe.emitOp(RETURN)
			return nil
		}
		for i, s := range n.Exprs {
			if i == len(n.Exprs)-1 {
				return compileTail(fe, s)
			}
			if err := compileExpr(fe, s); err != nil {
				return err
			}
			fe.emitOp(POP)
		}
		return nil

	case *ir.Call:
		return compileCall(fe, n, true)

	case *ir.Effect:
		return compileEffect(fe, n, true)

	default:
		if err := compileExpr(fe, e); err != nil {
			return err
		}
		fe.emitOp(RETURN)
		return nil
	}
}

func compileVarLoad(fe *funcEnv, name string) error {
	if slot, ok := fe.locals[name]; ok {
		fe.emitU16(LOAD_LOCAL, slot)
		return nil
	}
	if idx, ok := fe.captureIndex[name]; ok {
		fe.emitU16(LOAD_UPVALUE, idx)
		return nil
	}
	idx := fe.e.internName(name)
	fe.emitU16(LOAD_GLOBAL, idx)
	return nil
}

func compileCall(fe *funcEnv, n *ir.Call, tail bool) error {
	if callee, ok := n.Callee.(*ir.Var); ok {
		if op, ok := fastBinaryOp[callee.Name]; ok && len(n.Args) == 2 {
			if err := compileExpr(fe, n.Args[0]); err != nil {
				return err
			}
			if err := compileExpr(fe, n.Args[1]); err != nil {
				return err
			}
			fe.emitOp(op)
			if tail {
				fe.emitOp(RETURN)
			}
			return nil
		}
		if callee.Name == "-" && len(n.Args) == 1 {
			if err := compileExpr(fe, n.Args[0]); err != nil {
				return err
			}
			fe.emitOp(NEG)
			if tail {
				fe.emitOp(RETURN)
			}
			return nil
		}
	}

	if err := compileExpr(fe, n.Callee); err != nil {
		return err
	}
	for _, a := range n.Args {
		if err := compileExpr(fe, a); err != nil {
			return err
		}
	}
	if len(n.Args) > 255 {
		return fmt.Errorf("compiler: call with %d arguments exceeds the 255 limit", len(n.Args))
	}
	if tail {
		fe.emitU8(TAIL_CALL, len(n.Args))
	} else {
		fe.emitU8(CALL, len(n.Args))
	}
	return nil
}

// compileEffect compiles an Effect node. "assert" is special-cased: a
// failed assertion raises a RuntimeError rather than performing an
// effect, so it never reaches the EFFECT opcode at all, compiling instead
// to an ordinary call of the "assert" builtin, which raises when its
// argument is falsy.
func compileEffect(fe *funcEnv, n *ir.Effect, tail bool) error {
	if n.Name == "assert" {
		return compileCall(fe, &ir.Call{Callee: &ir.Var{Name: "assert"}, Args: n.Args}, tail)
	}

	for _, a := range n.Args {
		if err := compileExpr(fe, a); err != nil {
			return err
		}
	}
	if len(n.Args) > 255 {
		return fmt.Errorf("compiler: effect with %d arguments exceeds the 255 limit", len(n.Args))
	}
	nameIdx := fe.e.internName(n.Name)
	fe.emitEffect(nameIdx, len(n.Args))
	if tail {
		fe.emitOp(RETURN)
	}
	return nil
}

// compileFn compiles a function literal into a new template: it resolves
// each captured free variable against the enclosing funcEnv — a local
// slot there (IsLocal=true) or one of its own upvalues (IsLocal=false) —
// then emits MAKE_CLOSURE against the reserved template index.
func compileFn(fe *funcEnv, n *ir.Fn) error {
	idx := fe.e.reserveTemplate()

	upvalues := make([]container.Upvalue, 0, len(n.Captures))
	for _, name := range n.Captures {
		if slot, ok := fe.locals[name]; ok {
			upvalues = append(upvalues, container.Upvalue{IsLocal: true, Index: uint32(slot)})
			continue
		}
		if ui, ok := fe.captureIndex[name]; ok {
			upvalues = append(upvalues, container.Upvalue{IsLocal: false, Index: uint32(ui)})
			continue
		}
		return fmt.Errorf("compiler: internal error: capture %q of function %q not resolvable in enclosing scope", name, n.Name)
	}

	childFe := newFuncEnv(fe.e, fe, n.Params, n.Captures)
	childFe.upvalues = upvalues
	if err := compileTail(childFe, n.Body); err != nil {
		return err
	}

	nameIndex := int32(-1)
	if n.Name != "" {
		nameIndex = int32(fe.e.internName(n.Name))
	}
	fe.e.finalizeTemplate(idx, nameIndex, childFe)

	fe.emitU16(MAKE_CLOSURE, idx)
	return nil
}

func constOf(v ir.ConstValue) container.Constant {
	switch c := v.(type) {
	case ir.ConstNull:
		return container.Constant{Tag: container.ConstNull}
	case ir.ConstBool:
		if c {
			return container.Constant{Tag: container.ConstTrue}
		}
		return container.Constant{Tag: container.ConstFalse}
	case ir.ConstNumber:
		return container.Constant{Tag: container.ConstFloat64, Float64: float64(c)}
	case ir.ConstString:
		return container.Constant{Tag: container.ConstString, Str: string(c)}
	case ir.ConstRegex:
		return container.Constant{Tag: container.ConstRegex, Str: c.Pattern, Flags: c.Flags}
	default:
		return container.Constant{Tag: container.ConstNull}
	}
}
