//go:build !unix

package wire

import "time"

// Readable falls back to a near-zero read deadline probe on platforms
// without poll(2) access through golang.org/x/sys/unix. It is less precise
// (a non-consuming one-byte Peek still briefly engages the deadline
// machinery) but keeps
// the same "never block for real" contract as the unix implementation.
func (cn *Conn) Readable() (bool, error) {
	if cn.br.Buffered() > 0 {
		return true, nil
	}

	_ = cn.netConn.SetReadDeadline(time.Now().Add(time.Millisecond))
	defer cn.netConn.SetReadDeadline(noDeadline)

	_, err := cn.br.Peek(1)
	if err != nil {
		return false, nil
	}
	return true, nil
}
