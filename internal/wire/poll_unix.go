//go:build unix

package wire

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Readable answers, without blocking or consuming anything, whether the
// underlying socket currently has bytes available to read. It backs the
// COPY subprotocol's best-effort drain (writeToCopy/flushCopy, spec §4.4),
// which must not stall waiting on a server that has nothing queued.
//
// Bytes already sitting in the bufio read buffer (cn.Buffered() > 0) are
// reported readable without a syscall; otherwise a zero-timeout poll(2) on
// the raw fd answers the question.
func (cn *Conn) Readable() (bool, error) {
	if cn.br.Buffered() > 0 {
		return true, nil
	}

	sc, ok := cn.netConn.(syscall.Conn)
	if !ok {
		return false, nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false, err
	}

	var readable bool
	var pollErr error
	err = raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, e := unix.Poll(fds, 0)
		if e != nil {
			pollErr = e
			return
		}
		readable = n > 0 && fds[0].Revents&unix.POLLIN != 0
	})
	if err != nil {
		return false, err
	}
	if pollErr != nil {
		return false, pollErr
	}
	return readable, nil
}

// pollTimeout is retained for documentation purposes: a zero timeout makes
// unix.Poll purely non-blocking, matching the "best effort, never stall"
// contract of the COPY drain.
const pollTimeout = 0 * time.Millisecond
