package container

import "fmt"

// MalformedBytecode is the single error kind the reader returns: every
// structural validation failure is reported through this type, carrying
// the byte offset at which the problem was detected and a short reason.
type MalformedBytecode struct {
	Offset uint32
	Reason string
}

func (e *MalformedBytecode) Error() string {
	return fmt.Sprintf("malformed bytecode at offset %d: %s", e.Offset, e.Reason)
}

func malformed(offset uint32, format string, args ...interface{}) error {
	return &MalformedBytecode{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
