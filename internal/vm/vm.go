// Package vm implements pex's stack machine: a flat operand stack,
// explicit call frames with fixed-size local slot arrays, open/closed
// upvalue cells for closures, and a synchronous trampoline to the host for
// the EFFECT opcode.
//
// TAIL_CALL reuses the current frame in place instead of growing the
// frame stack, bounding recursion depth for self-recursive pipelines;
// upvalues have the open/closed lifecycle compiler.Opcode's
// LOAD_UPVALUE/STORE_UPVALUE expect rather than being always heap
// allocated.
package vm

import (
	"math"

	"github.com/just-be-dev/pex-sub001/internal/compiler"
	"github.com/just-be-dev/pex-sub001/internal/container"
	"github.com/just-be-dev/pex-sub001/internal/value"
)

// VM executes a single compiled module against a set of host-provided
// globals and an effect handler.
type VM struct {
	file    *container.File
	globals map[string]value.Value
	handler EffectHandler

	stack  []value.Value
	frames []*frame
}

type frame struct {
	closure *value.Function
	tmpl    *container.FunctionTemplate
	locals  []value.Value
	ip      int

	openUpvalues map[uint32]*value.Upvalue
}

// New returns a VM ready to run file. globals supplies builtin and
// user-provided top-level names resolved by LOAD_GLOBAL; handler answers
// EFFECT instructions.
func New(file *container.File, globals map[string]value.Value, handler EffectHandler) *VM {
	return &VM{file: file, globals: globals, handler: handler}
}

// Run invokes the module's entry template with input bound to its sole
// implicit parameter and returns the module body's result.
func (vm *VM) Run(input value.Value) (value.Value, error) {
	entry := &vm.file.Functions[vm.file.EntryPoint]
	fr := vm.newFrame(&value.Function{Name: "", ClosureTemplate: int(vm.file.EntryPoint)}, entry)
	fr.locals[0] = input
	vm.frames = append(vm.frames, fr)
	return vm.run()
}

func (vm *VM) newFrame(closure *value.Function, tmpl *container.FunctionTemplate) *frame {
	return &frame{
		closure:      closure,
		tmpl:         tmpl,
		locals:       make([]value.Value, tmpl.LocalCount),
		openUpvalues: map[uint32]*value.Upvalue{},
	}
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) popN(n int) []value.Value {
	args := append([]value.Value(nil), vm.stack[len(vm.stack)-n:]...)
	vm.stack = vm.stack[:len(vm.stack)-n]
	return args
}

func (vm *VM) top() *frame { return vm.frames[len(vm.frames)-1] }

func closeFrameUpvalues(fr *frame) {
	for _, uv := range fr.openUpvalues {
		uv.Close()
	}
}

// run is the main interpreter loop. It is iterative, not recursive, so that
// tail calls (which replace frames[top] in place) never grow the Go call
// stack regardless of pipeline recursion depth.
func (vm *VM) run() (value.Value, error) {
	for {
		fr := vm.top()
		code := vm.file.Code[fr.tmpl.CodeOffset : fr.tmpl.CodeOffset+fr.tmpl.CodeLength]
		if fr.ip >= len(code) {
			return nil, runtimeErrorf("ran off the end of function code")
		}
		op := compiler.Opcode(code[fr.ip])
		fr.ip++

		switch op {
		case compiler.LOAD_CONST:
			idx := vm.readU16(code, fr)
			vm.push(vm.constValue(int(idx)))

		case compiler.LOAD_LOCAL:
			idx := vm.readU16(code, fr)
			vm.push(fr.locals[idx])

		case compiler.STORE_LOCAL:
			idx := vm.readU16(code, fr)
			fr.locals[idx] = vm.pop()

		case compiler.LOAD_UPVALUE:
			idx := vm.readU16(code, fr)
			vm.push(fr.closure.Upvalues[idx].Get())

		case compiler.STORE_UPVALUE:
			idx := vm.readU16(code, fr)
			fr.closure.Upvalues[idx].Set(vm.pop())

		case compiler.LOAD_GLOBAL:
			idx := vm.readU16(code, fr)
			name := vm.file.Names[idx]
			v, ok := vm.globals[name]
			if !ok {
				return nil, runtimeErrorf("undefined global %q", name)
			}
			vm.push(v)

		case compiler.MAKE_CLOSURE:
			idx := vm.readU16(code, fr)
			tmpl := &vm.file.Functions[idx]
			ups := make([]*value.Upvalue, len(tmpl.Upvalues))
			for i, ud := range tmpl.Upvalues {
				if ud.IsLocal {
					ups[i] = vm.openUpvalueFor(fr, ud.Index)
				} else {
					ups[i] = fr.closure.Upvalues[ud.Index]
				}
			}
			name := ""
			if tmpl.NameIndex >= 0 {
				name = vm.file.Names[tmpl.NameIndex]
			}
			vm.push(&value.Function{Name: name, ClosureTemplate: int(idx), Upvalues: ups})

		case compiler.CALL:
			argc := int(code[fr.ip])
			fr.ip++
			if err := vm.call(argc, false); err != nil {
				return nil, err
			}

		case compiler.TAIL_CALL:
			argc := int(code[fr.ip])
			fr.ip++
			if err := vm.call(argc, true); err != nil {
				return nil, err
			}
			if vm.top() == fr {
				// A builtin callee leaves fr in place with its result pushed;
				// TAIL_CALL is terminal, so return that result from fr.
				ret := vm.pop()
				closeFrameUpvalues(fr)
				vm.frames = vm.frames[:len(vm.frames)-1]
				if len(vm.frames) == 0 {
					return ret, nil
				}
				vm.push(ret)
			}

		case compiler.RETURN:
			ret := vm.pop()
			closeFrameUpvalues(fr)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return ret, nil
			}
			vm.push(ret)

		case compiler.JUMP:
			off := vm.readI16(code, fr)
			fr.ip += off

		case compiler.JUMP_IF_FALSE:
			off := vm.readI16(code, fr)
			if !value.Truthy(vm.pop()) {
				fr.ip += off
			}

		case compiler.POP:
			vm.pop()

		case compiler.EFFECT:
			nameIdx := vm.readU16(code, fr)
			argc := int(code[fr.ip])
			fr.ip++
			name := vm.file.Names[nameIdx]
			args := vm.popN(argc)
			resume, state := newResume()
			if _, err := vm.handler.Handle(name, args, resume); err != nil {
				return nil, &HostError{Effect: name, Message: err.Error()}
			}
			if !state.used {
				return nil, &HostError{Effect: name, Message: "handler returned without calling resume"}
			}
			vm.push(state.value)

		case compiler.NEG:
			v := vm.pop()
			if n, ok := v.(value.Number); ok {
				vm.push(-n)
				break
			}
			result, err := vm.callBuiltinByName("-", []value.Value{v})
			if err != nil {
				return nil, err
			}
			vm.push(result)

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
			b := vm.pop()
			a := vm.pop()
			an, aok := a.(value.Number)
			bn, bok := b.(value.Number)
			if aok && bok {
				res, err := fastArith(op, an, bn)
				if err != nil {
					return nil, err
				}
				vm.push(res)
				break
			}
			result, err := vm.callBuiltinByName(arithName(op), []value.Value{a, b})
			if err != nil {
				return nil, err
			}
			vm.push(result)

		default:
			return nil, runtimeErrorf("illegal opcode %d", op)
		}
	}
}

func (vm *VM) readU16(code []byte, fr *frame) uint32 {
	v := uint32(code[fr.ip]) | uint32(code[fr.ip+1])<<8
	fr.ip += 2
	return v
}

func (vm *VM) readI16(code []byte, fr *frame) int {
	v := int16(uint16(code[fr.ip]) | uint16(code[fr.ip+1])<<8)
	fr.ip += 2
	return int(v)
}

func (vm *VM) constValue(idx int) value.Value {
	c := vm.file.Constants[idx]
	switch c.Tag {
	case container.ConstNull:
		return value.NullValue
	case container.ConstTrue:
		return value.Boolean(true)
	case container.ConstFalse:
		return value.Boolean(false)
	case container.ConstInt32:
		return value.Number(c.Int32)
	case container.ConstFloat64:
		return value.Number(c.Float64)
	case container.ConstString:
		return value.String(c.Str)
	case container.ConstRegex:
		return &value.Regex{Pattern: c.Str, Flags: c.Flags}
	default:
		return value.NullValue
	}
}

// openUpvalueFor returns the frame's existing open upvalue for slot, or
// creates one: at most one open cell exists per (frame, slot) so that two
// closures created in the same scope observe the same mutable binding.
func (vm *VM) openUpvalueFor(fr *frame, slot uint32) *value.Upvalue {
	if uv, ok := fr.openUpvalues[slot]; ok {
		return uv
	}
	uv := value.NewOpenUpvalue(&fr.locals, int(slot))
	fr.openUpvalues[slot] = uv
	return uv
}

// call dispatches argc operands to either a builtin or a pex closure. For
// tail calls the current frame's open upvalues are closed and the frame is
// replaced in place rather than pushed, so recursive pipelines run in
// bounded stack space.
func (vm *VM) call(argc int, tail bool) error {
	args := vm.popN(argc)
	callee := vm.pop()
	fn, ok := callee.(*value.Function)
	if !ok {
		return runtimeErrorf("attempt to call a %s value", callee.Type())
	}

	if fn.IsBuiltin() {
		result, err := fn.Builtin(args)
		if err != nil {
			return err
		}
		vm.push(result)
		return nil
	}

	tmpl := &vm.file.Functions[fn.ClosureTemplate]
	if uint32(argc) != tmpl.ParamCount {
		return runtimeErrorf("function %s expects %d argument(s), got %d", fn.Name, tmpl.ParamCount, argc)
	}

	newFr := vm.newFrame(fn, tmpl)
	copy(newFr.locals, args)

	if tail && len(vm.frames) > 0 {
		closeFrameUpvalues(vm.top())
		vm.frames[len(vm.frames)-1] = newFr
	} else {
		vm.frames = append(vm.frames, newFr)
	}
	return nil
}

func (vm *VM) callBuiltinByName(name string, args []value.Value) (value.Value, error) {
	v, ok := vm.globals[name]
	if !ok {
		return nil, runtimeErrorf("undefined global %q", name)
	}
	fn, ok := v.(*value.Function)
	if !ok || !fn.IsBuiltin() {
		return nil, runtimeErrorf("%q is not a builtin function", name)
	}
	return fn.Builtin(args)
}

func arithName(op compiler.Opcode) string {
	switch op {
	case compiler.ADD:
		return "+"
	case compiler.SUB:
		return "-"
	case compiler.MUL:
		return "*"
	case compiler.DIV:
		return "/"
	case compiler.MOD:
		return "%"
	default:
		return "?"
	}
}

func fastArith(op compiler.Opcode, a, b value.Number) (value.Number, error) {
	switch op {
	case compiler.ADD:
		return a + b, nil
	case compiler.SUB:
		return a - b, nil
	case compiler.MUL:
		return a * b, nil
	case compiler.DIV:
		if b == 0 {
			return 0, runtimeErrorf("division by zero")
		}
		return a / b, nil
	case compiler.MOD:
		if b == 0 {
			return 0, runtimeErrorf("division by zero")
		}
		return value.Number(math.Mod(float64(a), float64(b))), nil
	default:
		return 0, runtimeErrorf("illegal fast arithmetic opcode %d", op)
	}
}
