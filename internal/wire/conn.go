// Package wire implements the Byte Stream: framed typed-message I/O over a
// duplex socket. It assumes the connection has already completed startup
// and authentication (out of scope for this core, per the spec) and simply
// frames/unframes PostgreSQL v3 protocol messages on top of whatever
// net.Conn the caller hands it.
package wire

import (
	"net"
	"time"

	"github.com/vmihailenco/bufio"
)

var noDeadline = time.Time{}

// Conn is the framed duplex byte stream a single Executor drives.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	wb      *WriteBuffer

	usedAt time.Time
}

func NewConn(netConn net.Conn) *Conn {
	return &Conn{
		netConn: netConn,
		br:      bufio.NewReader(netConn),
		wb:      NewWriteBuffer(),
		usedAt:  time.Now(),
	}
}

func (cn *Conn) NetConn() net.Conn { return cn.netConn }
func (cn *Conn) UsedAt() time.Time { return cn.usedAt }

func (cn *Conn) SetReadTimeout(d time.Duration) {
	cn.usedAt = time.Now()
	if d == 0 {
		_ = cn.netConn.SetReadDeadline(noDeadline)
	} else {
		_ = cn.netConn.SetReadDeadline(cn.usedAt.Add(d))
	}
}

func (cn *Conn) SetWriteTimeout(d time.Duration) {
	cn.usedAt = time.Now()
	if d == 0 {
		_ = cn.netConn.SetWriteDeadline(noDeadline)
	} else {
		_ = cn.netConn.SetWriteDeadline(cn.usedAt.Add(d))
	}
}

// Buf exposes the write-side framing buffer to message encoders.
func (cn *Conn) Buf() *WriteBuffer { return cn.wb }

// Flush writes out everything staged in the write buffer.
func (cn *Conn) Flush() error {
	b := cn.wb.Take()
	if len(b) == 0 {
		return nil
	}
	_, err := cn.netConn.Write(b)
	return err
}

// Buffered reports how many response bytes are already sitting in the
// read buffer; reading up to that many bytes does not block on the
// socket.
func (cn *Conn) Buffered() int {
	return cn.br.Buffered()
}

// PeekByte looks at the next byte without consuming it.
func (cn *Conn) PeekByte() (byte, error) {
	b, err := cn.br.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Close terminates the underlying socket. Sending a Terminate message
// first is the caller's responsibility (connection teardown is an
// external collaborator's concern per the spec).
func (cn *Conn) Close() error {
	return cn.netConn.Close()
}

// ReadN reads and returns exactly n bytes, reusing an internal scratch
// buffer. The returned slice is only valid until the next ReadN call.
func (cn *Conn) ReadN(n int) ([]byte, error) {
	return cn.br.ReadN(n)
}

// Skip discards exactly n unread bytes.
func (cn *Conn) Skip(n int) error {
	_, err := cn.br.ReadN(n)
	return err
}
