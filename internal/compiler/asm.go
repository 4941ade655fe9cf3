// This file implements a human-readable/writable text form of a
// container.File: it supports testing the VM and container package
// directly against hand-written fixtures, without driving the
// lexer/parser/lowerer. The format lays out a program: header followed by
// one or more function: blocks, with fixed-width opcode operands matching
// pex's bytecode instruction set.
//
// 	program:
// 		entry: 0
// 		constants:
// 			string "abc"
// 			float  1.5
// 		names:
// 			foo
//
// 	function: 0 params=0 locals=1
// 		upvalues:
// 			local 0
// 		code:
// 			load_const 0
// 			return
package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/just-be-dev/pex-sub001/internal/container"
)

var asmSections = map[string]bool{
	"program:":   true,
	"entry:":     true,
	"constants:": true,
	"names:":     true,
	"function:":  true,
	"upvalues:":  true,
	"code:":      true,
}

// Asm parses b, PEX's text assembler format, into a container.File.
func Asm(b []byte) (*container.File, error) {
	a := &asmParser{s: bufio.NewScanner(bytes.NewReader(b))}
	fields := a.next()
	if a.err == nil && (len(fields) == 0 || fields[0] != "program:") {
		a.err = fmt.Errorf("asm: expected 'program:' section")
	}
	f := &container.File{VersionMajor: container.VersionMajor, VersionMinor: container.VersionMinor}
	fields = a.next()
	fields = a.entry(f, fields)
	fields = a.constants(f, fields)
	fields = a.names(f, fields)

	var code []byte
	for a.err == nil && len(fields) > 0 && fields[0] == "function:" {
		fields = a.function(f, &code, fields)
	}
	f.Code = code

	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("asm: unexpected section %q", fields[0])
	}
	return f, a.err
}

type asmParser struct {
	s   *bufio.Scanner
	err error
}

func (a *asmParser) next() []string {
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) != 0 {
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

func (a *asmParser) entry(f *container.File, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "entry:" {
		return fields
	}
	if len(fields) != 2 {
		a.err = fmt.Errorf("asm: expected 'entry: N'")
		return fields
	}
	f.EntryPoint = uint32(a.uint(fields[1]))
	return a.next()
}

func (a *asmParser) constants(f *container.File, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "constants:" {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		switch fields[0] {
		case "null":
			f.Constants = append(f.Constants, container.Constant{Tag: container.ConstNull})
		case "true":
			f.Constants = append(f.Constants, container.Constant{Tag: container.ConstTrue})
		case "false":
			f.Constants = append(f.Constants, container.Constant{Tag: container.ConstFalse})
		case "float":
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.err = fmt.Errorf("asm: invalid float %q: %w", fields[1], err)
				return fields
			}
			f.Constants = append(f.Constants, container.Constant{Tag: container.ConstFloat64, Float64: v})
		case "string":
			s, err := strconv.Unquote(strings.Join(fields[1:], " "))
			if err != nil {
				a.err = fmt.Errorf("asm: invalid string constant: %w", err)
				return fields
			}
			f.Constants = append(f.Constants, container.Constant{Tag: container.ConstString, Str: s})
		case "regex":
			pat, err := strconv.Unquote(fields[1])
			if err != nil {
				a.err = fmt.Errorf("asm: invalid regex pattern: %w", err)
				return fields
			}
			flags, err := strconv.Unquote(fields[2])
			if err != nil {
				a.err = fmt.Errorf("asm: invalid regex flags: %w", err)
				return fields
			}
			f.Constants = append(f.Constants, container.Constant{Tag: container.ConstRegex, Str: pat, Flags: flags})
		default:
			a.err = fmt.Errorf("asm: unknown constant kind %q", fields[0])
			return fields
		}
	}
	return fields
}

func (a *asmParser) names(f *container.File, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "names:" {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		f.Names = append(f.Names, fields[0])
	}
	return fields
}

func (a *asmParser) function(f *container.File, code *[]byte, fields []string) []string {
	if len(fields) < 2 {
		a.err = fmt.Errorf("asm: invalid 'function:' header")
		return a.next()
	}
	tmpl := container.FunctionTemplate{NameIndex: -1}
	for _, opt := range fields[2:] {
		k, v, ok := strings.Cut(opt, "=")
		if !ok {
			a.err = fmt.Errorf("asm: invalid function option %q", opt)
			return fields
		}
		switch k {
		case "name":
			tmpl.NameIndex = int32(a.uint(v))
		case "params":
			tmpl.ParamCount = uint32(a.uint(v))
		case "locals":
			tmpl.LocalCount = uint32(a.uint(v))
		default:
			a.err = fmt.Errorf("asm: unknown function option %q", k)
			return fields
		}
	}

	fields = a.next()
	fields = a.upvalues(&tmpl, fields)

	if a.err == nil && (len(fields) == 0 || fields[0] != "code:") {
		a.err = fmt.Errorf("asm: expected 'code:' section")
		return fields
	}
	off := uint32(len(*code))
	var body []byte
	fields = a.next()
	var jumpFixups []int // offsets, relative to body, of jumps needing index->addr translation
	var insnStarts []int
	for a.err == nil && len(fields) > 0 && !asmSections[fields[0]] {
		insnStarts = append(insnStarts, len(body))
		opName := fields[0]
		op, ok := reverseOpcode[opName]
		if !ok {
			a.err = fmt.Errorf("asm: unknown opcode %q", opName)
			return fields
		}
		body = append(body, byte(op))
		switch op {
		case LOAD_CONST, LOAD_LOCAL, STORE_LOCAL, LOAD_UPVALUE, STORE_UPVALUE, LOAD_GLOBAL, MAKE_CLOSURE:
			n := uint16(a.uint(fields[1]))
			body = append(body, byte(n), byte(n>>8))
		case CALL, TAIL_CALL:
			n := uint8(a.uint(fields[1]))
			body = append(body, n)
		case EFFECT:
			nameIdx := uint16(a.uint(fields[1]))
			argc := uint8(a.uint(fields[2]))
			body = append(body, byte(nameIdx), byte(nameIdx>>8), argc)
		case JUMP, JUMP_IF_FALSE:
			jumpFixups = append(jumpFixups, len(body))
			body = append(body, 0, 0) // patched below, operand is target insn index for now
			target := int(a.uint(fields[1]))
			body[len(body)-2] = byte(target)
			body[len(body)-1] = byte(target >> 8)
		}
		fields = a.next()
	}

	// Translate jump operands from instruction index to relative byte offset.
	for _, pos := range jumpFixups {
		idx := int(body[pos]) | int(body[pos+1])<<8
		if idx < 0 || idx >= len(insnStarts) {
			a.err = fmt.Errorf("asm: jump target %d out of range", idx)
			return fields
		}
		targetAddr := insnStarts[idx]
		rel := targetAddr - (pos + 2)
		body[pos] = byte(int16(rel))
		body[pos+1] = byte(int16(rel) >> 8)
	}

	tmpl.CodeOffset = off
	tmpl.CodeLength = uint32(len(body))
	*code = append(*code, body...)
	f.Functions = append(f.Functions, tmpl)
	return fields
}

func (a *asmParser) upvalues(tmpl *container.FunctionTemplate, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "upvalues:" {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		if len(fields) != 2 {
			a.err = fmt.Errorf("asm: invalid upvalue descriptor")
			return fields
		}
		isLocal := fields[0] == "local"
		tmpl.Upvalues = append(tmpl.Upvalues, container.Upvalue{IsLocal: isLocal, Index: uint32(a.uint(fields[1]))})
	}
	return fields
}

func (a *asmParser) uint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		a.err = fmt.Errorf("asm: invalid integer %q: %w", s, err)
	}
	return v
}

// Dasm renders f in PEX's text assembler format, the inverse of Asm (modulo
// jump operands round-tripping as instruction indices rather than relative
// byte offsets).
func Dasm(f *container.File) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "program:\n\tentry: %d\n", f.EntryPoint)
	if len(f.Constants) > 0 {
		buf.WriteString("\tconstants:\n")
		for i, c := range f.Constants {
			switch c.Tag {
			case container.ConstNull:
				fmt.Fprintf(&buf, "\t\tnull\t# %03d\n", i)
			case container.ConstTrue:
				fmt.Fprintf(&buf, "\t\ttrue\t# %03d\n", i)
			case container.ConstFalse:
				fmt.Fprintf(&buf, "\t\tfalse\t# %03d\n", i)
			case container.ConstFloat64:
				fmt.Fprintf(&buf, "\t\tfloat\t%g\t# %03d\n", c.Float64, i)
			case container.ConstString:
				fmt.Fprintf(&buf, "\t\tstring\t%q\t# %03d\n", c.Str, i)
			case container.ConstRegex:
				fmt.Fprintf(&buf, "\t\tregex\t%q %q\t# %03d\n", c.Str, c.Flags, i)
			default:
				return nil, fmt.Errorf("asm: unsupported constant tag %d", c.Tag)
			}
		}
	}
	if len(f.Names) > 0 {
		buf.WriteString("\tnames:\n")
		for i, n := range f.Names {
			fmt.Fprintf(&buf, "\t\t%s\t# %03d\n", n, i)
		}
	}

	for idx, fn := range f.Functions {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "function: %d params=%d locals=%d", idx, fn.ParamCount, fn.LocalCount)
		if fn.NameIndex >= 0 {
			fmt.Fprintf(&buf, " name=%d", fn.NameIndex)
		}
		buf.WriteString("\n")
		if len(fn.Upvalues) > 0 {
			buf.WriteString("\tupvalues:\n")
			for _, uv := range fn.Upvalues {
				kind := "upvalue"
				if uv.IsLocal {
					kind = "local"
				}
				fmt.Fprintf(&buf, "\t\t%s %d\n", kind, uv.Index)
			}
		}
		if err := dasmCode(&buf, f.Code[fn.CodeOffset:fn.CodeOffset+fn.CodeLength]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func dasmCode(buf *bytes.Buffer, code []byte) error {
	if len(code) == 0 {
		return nil
	}
	buf.WriteString("\tcode:\n")

	addrToIndex := make(map[int]int)
	type decoded struct {
		op       Opcode
		arg      int
		nameIdx  int
		argc     int
		relJump  int
		hasArg   bool
		isJump   bool
		isEffect bool
	}
	var insns []decoded
	pos := 0
	for pos < len(code) {
		addrToIndex[pos] = len(insns)
		op := Opcode(code[pos])
		d := decoded{op: op}
		pos++
		switch op {
		case LOAD_CONST, LOAD_LOCAL, STORE_LOCAL, LOAD_UPVALUE, STORE_UPVALUE, LOAD_GLOBAL, MAKE_CLOSURE:
			d.hasArg = true
			d.arg = int(uint16(code[pos]) | uint16(code[pos+1])<<8)
			pos += 2
		case CALL, TAIL_CALL:
			d.hasArg = true
			d.arg = int(code[pos])
			pos++
		case EFFECT:
			d.isEffect = true
			d.nameIdx = int(uint16(code[pos]) | uint16(code[pos+1])<<8)
			d.argc = int(code[pos+2])
			pos += 3
		case JUMP, JUMP_IF_FALSE:
			d.isJump = true
			d.relJump = int(int16(uint16(code[pos]) | uint16(code[pos+1])<<8))
			d.relJump += pos + 2 // becomes absolute target address, translated to index below
			pos += 2
		}
		insns = append(insns, d)
	}

	addr := 0
	for _, d := range insns {
		switch {
		case d.isJump:
			idx, ok := addrToIndex[d.relJump]
			if !ok {
				return fmt.Errorf("asm: jump to non-instruction-boundary address %d", d.relJump)
			}
			fmt.Fprintf(buf, "\t\t%s %d\n", d.op, idx)
		case d.isEffect:
			fmt.Fprintf(buf, "\t\t%s %d %d\n", d.op, d.nameIdx, d.argc)
		case d.hasArg:
			fmt.Fprintf(buf, "\t\t%s %d\n", d.op, d.arg)
		default:
			fmt.Fprintf(buf, "\t\t%s\n", d.op)
		}
		_ = addr
	}
	return nil
}
