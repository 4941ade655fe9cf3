package container

import (
	"encoding/binary"
	"unicode/utf8"
)

// Read parses and validates b, returning a MalformedBytecode error for any
// structural violation: bad magic, incompatible major version, truncated
// section, unknown constant tag, invalid UTF-8, an out-of-range
// codeOffset/codeLength, paramCount > localCount, an out-of-range entry
// point, unconsumed trailing bytes, or a debug-info flag that doesn't
// match the presence of a debug section.
func Read(b []byte) (*File, error) {
	r := &reader{buf: b}

	if len(b) < 16 {
		return nil, malformed(uint32(len(b)), "truncated header")
	}
	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != Magic {
		return nil, malformed(0, "bad magic")
	}
	major := b[4]
	if major != VersionMajor {
		return nil, malformed(4, "incompatible major version %d (want %d)", major, VersionMajor)
	}
	minor := b[5]
	flags := b[6]
	if b[7] != 0 {
		return nil, malformed(7, "reserved byte must be zero")
	}
	entryPoint := binary.LittleEndian.Uint32(b[8:12])
	constPoolOffset := binary.LittleEndian.Uint32(b[12:16])
	if constPoolOffset != 16 {
		return nil, malformed(12, "constantPoolOffset must be 16, got %d", constPoolOffset)
	}
	r.pos = 16

	f := &File{
		VersionMajor: major,
		VersionMinor: minor,
		Flags:        flags,
		EntryPoint:   entryPoint,
		HasDebugInfo: flags&FlagHasDebugInfo != 0,
	}

	var err error
	f.Constants, err = r.constantPool()
	if err != nil {
		return nil, err
	}
	f.Names, err = r.nameTable()
	if err != nil {
		return nil, err
	}
	f.Functions, err = r.functionTemplates()
	if err != nil {
		return nil, err
	}
	f.Code, err = r.codeSection()
	if err != nil {
		return nil, err
	}

	if f.HasDebugInfo {
		f.Debug, err = r.debugInfo()
		if err != nil {
			return nil, err
		}
	}

	if r.pos != len(b) {
		return nil, malformed(uint32(r.pos), "unconsumed trailing bytes")
	}

	if err := validate(f); err != nil {
		return nil, err
	}

	return f, nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return malformed(uint32(r.pos), "truncated section")
	}
	return nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) f64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return bitsToFloat(v), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if !utf8.Valid(b) {
		return "", malformed(uint32(r.pos-int(n)), "invalid UTF-8 string")
	}
	return string(b), nil
}

func (r *reader) constantPool() ([]Constant, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]Constant, 0, n)
	for i := uint32(0); i < n; i++ {
		tagByte, err := r.u8()
		if err != nil {
			return nil, err
		}
		tag := ConstTag(tagByte)
		var c Constant
		c.Tag = tag
		switch tag {
		case ConstNull, ConstTrue, ConstFalse:
		case ConstInt32:
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			c.Int32 = int32(v)
		case ConstFloat64:
			v, err := r.f64()
			if err != nil {
				return nil, err
			}
			c.Float64 = v
		case ConstString:
			s, err := r.str()
			if err != nil {
				return nil, err
			}
			c.Str = s
		case ConstRegex:
			pat, err := r.str()
			if err != nil {
				return nil, err
			}
			flags, err := r.str()
			if err != nil {
				return nil, err
			}
			c.Str, c.Flags = pat, flags
		default:
			return nil, malformed(uint32(r.pos-1), "unknown constant tag %d", tagByte)
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *reader) nameTable() ([]string, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *reader) functionTemplates() ([]FunctionTemplate, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]FunctionTemplate, 0, n)
	for i := uint32(0); i < n; i++ {
		nameIndex, err := r.u32()
		if err != nil {
			return nil, err
		}
		paramCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		localCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		upvalueCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		upvalues := make([]Upvalue, 0, upvalueCount)
		for j := uint32(0); j < upvalueCount; j++ {
			isLocal, err := r.u8()
			if err != nil {
				return nil, err
			}
			index, err := r.u32()
			if err != nil {
				return nil, err
			}
			upvalues = append(upvalues, Upvalue{IsLocal: isLocal != 0, Index: index})
		}
		codeOffset, err := r.u32()
		if err != nil {
			return nil, err
		}
		codeLength, err := r.u32()
		if err != nil {
			return nil, err
		}
		out = append(out, FunctionTemplate{
			NameIndex:  int32(nameIndex),
			ParamCount: paramCount,
			LocalCount: localCount,
			Upvalues:   upvalues,
			CodeOffset: codeOffset,
			CodeLength: codeLength,
		})
	}
	return out, nil
}

func (r *reader) codeSection() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	code := append([]byte(nil), r.buf[r.pos:r.pos+int(n)]...)
	r.pos += int(n)
	return code, nil
}

func (r *reader) debugInfo() ([]FunctionDebug, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]FunctionDebug, 0, n)
	for i := uint32(0); i < n; i++ {
		fnIdx, err := r.u32()
		if err != nil {
			return nil, err
		}
		localCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		locals := make([]string, 0, localCount)
		for j := uint32(0); j < localCount; j++ {
			s, err := r.str()
			if err != nil {
				return nil, err
			}
			locals = append(locals, s)
		}
		insnCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		insns := make([]InstructionLine, 0, insnCount)
		for j := uint32(0); j < insnCount; j++ {
			off, err := r.u32()
			if err != nil {
				return nil, err
			}
			line, err := r.u32()
			if err != nil {
				return nil, err
			}
			col, err := r.u32()
			if err != nil {
				return nil, err
			}
			insns = append(insns, InstructionLine{ByteOffset: off, Line: line, Column: col})
		}
		out = append(out, FunctionDebug{FunctionIndex: fnIdx, LocalNames: locals, Instructions: insns})
	}
	return out, nil
}

// validate applies the cross-referential checks that can only be made
// once every section has been parsed.
func validate(f *File) error {
	for i, fn := range f.Functions {
		if fn.ParamCount > fn.LocalCount {
			return malformed(0, "function %d: paramCount %d > localCount %d", i, fn.ParamCount, fn.LocalCount)
		}
		if uint64(fn.CodeOffset)+uint64(fn.CodeLength) > uint64(len(f.Code)) {
			return malformed(0, "function %d: code window out of range", i)
		}
	}
	if f.EntryPoint >= uint32(len(f.Functions)) {
		return malformed(0, "entryPoint %d out of range", f.EntryPoint)
	}
	if f.Functions[f.EntryPoint].ParamCount != 0 {
		return malformed(0, "entryPoint function must take no parameters")
	}
	return nil
}
