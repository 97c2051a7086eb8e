package wire

import "encoding/binary"

// nullLen is the wire-level length field of a null parameter value.
const nullLen = int32(-1)

// WriteBuffer accumulates one or more typed frontend messages before they
// are flushed to the socket in a single write. Message framing mirrors
// Postgres's [type byte][int32 length incl. itself][payload] shape; a
// zero type code (used for Bind parameter values, which have no type byte
// of their own) omits the leading byte.
type WriteBuffer struct {
	B     []byte
	start []int
}

func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{B: make([]byte, 0, 8192)}
}

// StartMessage opens a length-prefixed frame. Pass 0 to open a bare
// length-prefixed span (a Bind parameter) with no leading type byte.
func (buf *WriteBuffer) StartMessage(c MsgType) {
	if c == 0 {
		buf.start = append(buf.start, len(buf.B))
		buf.B = append(buf.B, 0, 0, 0, 0)
	} else {
		buf.start = append(buf.start, len(buf.B)+1)
		buf.B = append(buf.B, byte(c), 0, 0, 0, 0)
	}
}

func (buf *WriteBuffer) popStart() int {
	start := buf.start[len(buf.start)-1]
	buf.start = buf.start[:len(buf.start)-1]
	return start
}

// FinishMessage patches in the length of the most recently opened frame,
// including the length field itself.
func (buf *WriteBuffer) FinishMessage() {
	start := buf.popStart()
	binary.BigEndian.PutUint32(buf.B[start:], uint32(len(buf.B)-start))
}

// FinishParam patches in the length of a Bind parameter value, excluding
// the length field itself (the wire convention for parameter values).
func (buf *WriteBuffer) FinishParam() {
	start := buf.popStart()
	binary.BigEndian.PutUint32(buf.B[start:], uint32(len(buf.B)-start-4))
}

// FinishNullParam discards whatever was written since the matching
// StartMessage(0) and writes the well-known -1 null-length marker instead.
func (buf *WriteBuffer) FinishNullParam() {
	start := buf.popStart()
	buf.B = buf.B[:start+4]
	n := nullLen
	binary.BigEndian.PutUint32(buf.B[start:], uint32(n))
}

func (buf *WriteBuffer) WriteByte(c byte) {
	buf.B = append(buf.B, c)
}

func (buf *WriteBuffer) WriteBytes(b []byte) {
	buf.B = append(buf.B, b...)
}

func (buf *WriteBuffer) WriteInt16(n int16) {
	buf.B = append(buf.B, 0, 0)
	binary.BigEndian.PutUint16(buf.B[len(buf.B)-2:], uint16(n))
}

func (buf *WriteBuffer) WriteInt32(n int32) {
	buf.B = append(buf.B, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(buf.B[len(buf.B)-4:], uint32(n))
}

// WriteString writes a null-terminated C string.
func (buf *WriteBuffer) WriteString(s string) {
	buf.B = append(buf.B, s...)
	buf.B = append(buf.B, 0)
}

func (buf *WriteBuffer) Len() int {
	return len(buf.B)
}

// Take returns the accumulated bytes and resets the buffer for reuse.
// Panics if a message was started but never finished.
func (buf *WriteBuffer) Take() []byte {
	if len(buf.start) != 0 {
		panic("wire: message was not finished")
	}
	b := buf.B
	buf.B = buf.B[:0]
	return b
}

func (buf *WriteBuffer) Reset() {
	buf.start = buf.start[:0]
	buf.B = buf.B[:0]
}
