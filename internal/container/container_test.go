package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleFile() *File {
	return &File{
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
		EntryPoint:   0,
		Constants: []Constant{
			{Tag: ConstNull},
			{Tag: ConstTrue},
			{Tag: ConstFalse},
			{Tag: ConstFloat64, Float64: 3.5},
			{Tag: ConstString, Str: "hello"},
			{Tag: ConstRegex, Str: "a.c", Flags: "i"},
		},
		Names: []string{"x", "print"},
		Functions: []FunctionTemplate{
			{NameIndex: -1, ParamCount: 0, LocalCount: 2,
				Upvalues:   []Upvalue{{IsLocal: true, Index: 0}},
				CodeOffset: 0, CodeLength: 4},
		},
		Code: []byte{0, 1, 2, 3},
	}
}

func TestRoundTrip(t *testing.T) {
	f := sampleFile()
	b, err := Write(f)
	require.NoError(t, err)

	got, err := Read(b)
	require.NoError(t, err)
	require.Equal(t, f.EntryPoint, got.EntryPoint)
	require.Equal(t, f.Constants, got.Constants)
	require.Equal(t, f.Names, got.Names)
	require.Equal(t, f.Functions, got.Functions)
	require.Equal(t, f.Code, got.Code)
}

func TestWriteIsDeterministic(t *testing.T) {
	f := sampleFile()
	b1, err := Write(f)
	require.NoError(t, err)
	b2, err := Write(f)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestReadRejectsBadMagic(t *testing.T) {
	f := sampleFile()
	b, err := Write(f)
	require.NoError(t, err)
	b[0] ^= 0xff

	_, err = Read(b)
	require.Error(t, err)
	var merr *MalformedBytecode
	require.ErrorAs(t, err, &merr)
}

func TestReadRejectsIncompatibleMajorVersion(t *testing.T) {
	f := sampleFile()
	b, err := Write(f)
	require.NoError(t, err)
	b[4] = VersionMajor + 1

	_, err = Read(b)
	require.Error(t, err)
}

func TestReadRejectsTruncatedHeader(t *testing.T) {
	_, err := Read([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestReadRejectsTrailingBytes(t *testing.T) {
	f := sampleFile()
	b, err := Write(f)
	require.NoError(t, err)
	b = append(b, 0xde, 0xad)

	_, err = Read(b)
	require.Error(t, err)
}

func TestReadRejectsParamCountExceedingLocalCount(t *testing.T) {
	f := sampleFile()
	f.Functions[0].ParamCount = 5
	b, err := Write(f)
	require.NoError(t, err)

	_, err = Read(b)
	require.Error(t, err)
}

func TestReadRejectsEntryPointOutOfRange(t *testing.T) {
	f := sampleFile()
	f.EntryPoint = 9
	b, err := Write(f)
	require.NoError(t, err)

	_, err = Read(b)
	require.Error(t, err)
}

func TestReadRejectsEntryPointWithParams(t *testing.T) {
	f := sampleFile()
	f.Functions[0].ParamCount = 1
	f.Functions[0].LocalCount = 1
	b, err := Write(f)
	require.NoError(t, err)

	_, err = Read(b)
	require.Error(t, err)
}

func TestReadRejectsInvalidUTF8String(t *testing.T) {
	f := sampleFile()
	b, err := Write(f)
	require.NoError(t, err)

	// Corrupt the "hello" string constant's bytes with an invalid UTF-8
	// sequence, leaving its length prefix intact.
	idx := indexOf(b, []byte("hello"))
	require.GreaterOrEqual(t, idx, 0)
	b[idx] = 0xff

	_, err = Read(b)
	require.Error(t, err)
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
