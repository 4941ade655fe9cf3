package container

import (
	"bytes"
	"encoding/binary"
)

// Write serializes f to its binary form, producing byte-identical output
// for equal inputs; the only zero-by-construction field is the header's
// reserved byte.
func Write(f *File) ([]byte, error) {
	var buf bytes.Buffer

	// The header is written first, in file order: constantPoolOffset is
	// always 16 and entryPoint is taken from f, so nothing after the header
	// needs to be built before it.
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], Magic)
	header[4] = f.VersionMajor
	header[5] = f.VersionMinor
	header[6] = f.Flags
	header[7] = 0 // reserved
	binary.LittleEndian.PutUint32(header[8:12], f.EntryPoint)
	binary.LittleEndian.PutUint32(header[12:16], 16)
	buf.Write(header)

	writeConstantPool(&buf, f.Constants)
	writeNameTable(&buf, f.Names)
	writeFunctionTemplates(&buf, f.Functions)
	writeCodeSection(&buf, f.Code)
	if f.Flags&FlagHasDebugInfo != 0 {
		writeDebugInfo(&buf, f.Debug)
	}

	return buf.Bytes(), nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeConstantPool(buf *bytes.Buffer, cs []Constant) {
	writeU32(buf, uint32(len(cs)))
	for _, c := range cs {
		buf.WriteByte(byte(c.Tag))
		switch c.Tag {
		case ConstNull, ConstTrue, ConstFalse:
			// no payload
		case ConstInt32:
			writeU32(buf, uint32(c.Int32))
		case ConstFloat64:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], floatBits(c.Float64))
			buf.Write(b[:])
		case ConstString:
			writeString(buf, c.Str)
		case ConstRegex:
			writeString(buf, c.Str)
			writeString(buf, c.Flags)
		}
	}
}

func writeNameTable(buf *bytes.Buffer, names []string) {
	writeU32(buf, uint32(len(names)))
	for _, n := range names {
		writeString(buf, n)
	}
}

func writeFunctionTemplates(buf *bytes.Buffer, fns []FunctionTemplate) {
	writeU32(buf, uint32(len(fns)))
	for _, fn := range fns {
		writeU32(buf, uint32(fn.NameIndex))
		writeU32(buf, fn.ParamCount)
		writeU32(buf, fn.LocalCount)
		writeU32(buf, uint32(len(fn.Upvalues)))
		for _, uv := range fn.Upvalues {
			if uv.IsLocal {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
			writeU32(buf, uv.Index)
		}
		writeU32(buf, fn.CodeOffset)
		writeU32(buf, fn.CodeLength)
	}
}

func writeCodeSection(buf *bytes.Buffer, code []byte) {
	writeU32(buf, uint32(len(code)))
	buf.Write(code)
}

func writeDebugInfo(buf *bytes.Buffer, fns []FunctionDebug) {
	writeU32(buf, uint32(len(fns)))
	for _, fd := range fns {
		writeU32(buf, fd.FunctionIndex)
		writeU32(buf, uint32(len(fd.LocalNames)))
		for _, n := range fd.LocalNames {
			writeString(buf, n)
		}
		writeU32(buf, uint32(len(fd.Instructions)))
		for _, ins := range fd.Instructions {
			writeU32(buf, ins.ByteOffset)
			writeU32(buf, ins.Line)
			writeU32(buf, ins.Column)
		}
	}
}
