// Package container implements the reader and writer for pex's bytecode
// container format: a fixed 16-byte header followed by a constant pool, a
// name table, function templates, a flat code section and an optional
// debug-info section.
package container

// Magic is the fixed sentinel at the start of every bytecode file.
const Magic uint32 = 0x50455830 // "PEX0"

// VersionMajor is bumped on incompatible format changes; the reader
// rejects any file whose major version differs.
const VersionMajor = 1

// VersionMinor is bumped on backward-compatible additions.
const VersionMinor = 0

// FlagHasDebugInfo is bit 0 of the header's flags byte.
const FlagHasDebugInfo = 1 << 0

// ConstTag discriminates a ConstantPool entry's payload.
type ConstTag byte

const (
	ConstNull ConstTag = iota
	ConstTrue
	ConstFalse
	ConstInt32
	ConstFloat64
	ConstString
	ConstRegex
)

// Constant is one entry of the constant pool.
type Constant struct {
	Tag ConstTag

	Int32   int32
	Float64 float64
	Str     string // ConstString payload, or ConstRegex pattern
	Flags   string // ConstRegex flags only
}

// Upvalue describes one upvalue slot of a FunctionTemplate: either a
// capture of the enclosing function's local slot (IsLocal=true,
// Index=local slot) or of the enclosing function's own upvalue slot
// (IsLocal=false, Index=upvalue slot).
type Upvalue struct {
	IsLocal bool
	Index   uint32
}

// FunctionTemplate is the static, immutable description of a function: a
// window into the flat code section plus slot counts and upvalue
// descriptors.
type FunctionTemplate struct {
	NameIndex   int32 // -1 = anonymous
	ParamCount  uint32
	LocalCount  uint32 // includes parameters
	Upvalues    []Upvalue
	CodeOffset  uint32
	CodeLength  uint32
}

// InstructionLine is one entry of a function's debug line table.
type InstructionLine struct {
	ByteOffset uint32
	Line       uint32
	Column     uint32
}

// FunctionDebug is the optional per-function debug metadata.
type FunctionDebug struct {
	FunctionIndex uint32
	LocalNames    []string
	Instructions  []InstructionLine
}

// File is the complete, parsed form of a bytecode container.
type File struct {
	VersionMajor, VersionMinor uint8
	Flags                      uint8
	EntryPoint                 uint32

	Constants []Constant
	Names     []string
	Functions []FunctionTemplate
	Code      []byte

	HasDebugInfo bool
	Debug        []FunctionDebug
}
