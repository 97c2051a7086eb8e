package wire

import "fmt"

// WireError is the decoded field set of a backend ErrorResponse or
// NoticeResponse message. Field codes follow the protocol's single-byte
// scheme ('S' severity, 'C' SQLSTATE code, 'M' message, 'D' detail, ...).
type WireError struct {
	fields map[byte]string
}

func (e *WireError) Field(c byte) string { return e.fields[c] }

func (e *WireError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Field('S'), e.Field('C'), e.Field('M'))
}
