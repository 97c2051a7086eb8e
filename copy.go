package pgexec

import "fmt"

// CopyOperation is the handle returned by StartCopy: the sole owner of the
// connection's cooperative lock for the duration of one COPY session
// (spec §3 "Connection lock", §4.4).
type CopyOperation struct {
	conn *Conn
	out  bool // true once a CopyOutResponse was seen, false for CopyIn

	errCount int
	lastErr  *Error
}

// Out reports whether this is a CopyOut (server-to-client) session.
func (op *CopyOperation) Out() bool { return op.out }

// StartCopy sends sql (expected to be a COPY statement) as a simple Query
// and waits for the server's CopyInResponse/CopyOutResponse, acquiring the
// cooperative lock in the returned operation's name (spec §4.4).
func (c *Conn) StartCopy(sql string, suppressBegin bool) (*CopyOperation, *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waitLockFree()

	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if err := c.maybeImplicitBegin(suppressBegin); err != nil {
		return nil, err
	}

	buf := c.wc.Buf()
	buf.StartMessage(queryMsg)
	buf.WriteString(sql)
	buf.FinishMessage()
	if err := c.flushWrites(); err != nil {
		return nil, err
	}

	op := &CopyOperation{conn: c}
	for {
		code, msgLen, err := c.wc.ReadMsgType()
		if err != nil {
			return nil, c.forceClose(err.Error())
		}
		switch code {
		case backendCopyInResponse:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			op.out = false
			c.acquireLock(op)
			return op, nil

		case backendCopyOutResponse:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			op.out = true
			c.acquireLock(op)
			return op, nil

		case backendErrorResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			e := wireErrorAsError("", we)
			if derr := c.drainToReadyForQuery(); derr != nil {
				return nil, derr
			}
			return nil, e

		case backendParameterStatus:
			name, rerr := c.wc.ReadString()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			value, rerr := c.wc.ReadString()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			if gerr := c.applyParameterStatus(name, value); gerr != nil {
				return nil, gerr
			}

		case backendNoticeResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			c.AddWarning(wireErrorAsError("", we))

		default:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
		}
	}
}

// WriteToCopy sends one chunk of COPY IN data and opportunistically drains
// any notices/notifications the server has queued (spec §4.4).
func (op *CopyOperation) WriteToCopy(data []byte) *Error {
	c := op.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLock(op) {
		return &Error{Code: CodeObjectNotInState, Message: "pgexec: COPY operation does not hold the connection lock"}
	}

	buf := c.wc.Buf()
	buf.StartMessage(copyDataMsg)
	buf.WriteBytes(data)
	buf.FinishMessage()
	if err := c.flushWrites(); err != nil {
		return err
	}
	_, err := c.processCopyResults(op, false)
	return err
}

// FlushCopy performs the same best-effort non-blocking drain as
// WriteToCopy without sending any data (spec §4.4).
func (op *CopyOperation) FlushCopy() *Error {
	c := op.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLock(op) {
		return &Error{Code: CodeObjectNotInState, Message: "pgexec: COPY operation does not hold the connection lock"}
	}
	if err := c.flushWrites(); err != nil {
		return err
	}
	_, err := c.processCopyResults(op, false)
	return err
}

// EndCopy sends CopyDone and blocks through to ReadyForQuery, returning the
// server-reported row count (spec §4.4).
func (op *CopyOperation) EndCopy() (int64, *Error) {
	c := op.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLock(op) {
		return 0, &Error{Code: CodeObjectNotInState, Message: "pgexec: COPY operation does not hold the connection lock"}
	}

	buf := c.wc.Buf()
	buf.StartMessage(copyDoneMsg)
	buf.FinishMessage()
	if err := c.flushWrites(); err != nil {
		return 0, err
	}
	return c.processCopyResults(op, true)
}

// CancelCopy aborts an in-progress COPY: a CopyFail for CopyIn (spec §4.4,
// §8 "COPY cancel" — exactly one ErrorResponse is required in reply), or an
// out-of-band query-cancel for CopyOut.
func (op *CopyOperation) CancelCopy() *Error {
	c := op.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLock(op) {
		return &Error{Code: CodeObjectNotInState, Message: "pgexec: COPY operation does not hold the connection lock"}
	}
	if op.out {
		return op.cancelCopyOutLocked()
	}
	return op.cancelCopyInLocked()
}

func (op *CopyOperation) cancelCopyInLocked() *Error {
	c := op.conn
	c.emitCopyFail("pgexec: COPY cancelled by caller")
	if err := c.flushWrites(); err != nil {
		return err
	}
	if _, err := c.processCopyResults(op, true); err != nil && op.errCount == 0 {
		return err
	}
	if op.errCount != 1 {
		return &Error{Code: CodeCommunicationError, Message: fmt.Sprintf("pgexec: expected exactly one error response during COPY cancel, got %d", op.errCount)}
	}
	return nil
}

func (op *CopyOperation) cancelCopyOutLocked() *Error {
	c := op.conn
	if err := c.SendQueryCancel(); err != nil {
		return &Error{Code: CodeCommunicationError, Message: err.Error()}
	}
	for {
		data, err := c.readOneCopyOutMessage(op)
		if err != nil {
			return err
		}
		if data == nil {
			return nil
		}
	}
}

// ReadFromCopy returns the next CopyData chunk, or (nil, nil) once the
// server has finished (ReadyForQuery observed, lock released).
func (op *CopyOperation) ReadFromCopy() ([]byte, *Error) {
	c := op.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLock(op) {
		return nil, &Error{Code: CodeObjectNotInState, Message: "pgexec: COPY operation does not hold the connection lock"}
	}
	return c.readOneCopyOutMessage(op)
}

// readOneCopyOutMessage reads and discards incidental messages until it can
// return one CopyData chunk, or nil at end-of-copy. Callers must hold c.mu
// and already own the lock for op.
func (c *Conn) readOneCopyOutMessage(op *CopyOperation) ([]byte, *Error) {
	for {
		code, msgLen, err := c.wc.ReadMsgType()
		if err != nil {
			return nil, c.forceClose(err.Error())
		}
		switch code {
		case backendCopyData:
			data, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			cp := make([]byte, len(data))
			copy(cp, data)
			return cp, nil

		case backendCopyDone, backendCommandComplete, backendRowDescription, backendDataRow:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}

		case backendNoticeResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			c.AddWarning(wireErrorAsError("", we))

		case backendAsyncNotify:
			n, rerr := c.readNotification()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			c.AddNotification(n)

		case backendErrorResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			return nil, wireErrorAsError("", we)

		case backendReadyForQuery:
			st, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			c.SetTransactionState(TransactionState(st[0]))
			c.releaseLock()
			return nil, nil

		default:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
		}
	}
}

// processCopyResults is the demultiplexer of spec §4.4, scoped to COPY
// codes d/c/C/N/A/E/Z plus incidental G/H/T/D which are skipped. When
// block is false it never waits on the socket: a peeked CommandComplete is
// left unconsumed (the server may emit it before seeing our CopyDone) and
// the call returns as soon as nothing is immediately available.
func (c *Conn) processCopyResults(op *CopyOperation, block bool) (int64, *Error) {
	var rowCount int64
	for {
		if !block {
			readable, err := c.wc.Readable()
			if err != nil {
				return rowCount, c.forceClose(err.Error())
			}
			if !readable {
				return rowCount, nil
			}
			b, err := c.wc.PeekByte()
			if err != nil {
				return rowCount, c.forceClose(err.Error())
			}
			if b == byte(backendCommandComplete) {
				return rowCount, nil
			}
		}

		code, msgLen, err := c.wc.ReadMsgType()
		if err != nil {
			return rowCount, c.forceClose(err.Error())
		}

		switch code {
		case backendCopyData:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return rowCount, c.forceClose(rerr.Error())
			}

		case backendCopyDone:
			// no payload

		case backendCommandComplete:
			tag, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return rowCount, c.forceClose(rerr.Error())
			}
			_, rowCount, _ = parseCommandTag(tag)

		case backendNoticeResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return rowCount, c.forceClose(rerr.Error())
			}
			c.AddWarning(wireErrorAsError("", we))

		case backendAsyncNotify:
			n, rerr := c.readNotification()
			if rerr != nil {
				return rowCount, c.forceClose(rerr.Error())
			}
			c.AddNotification(n)

		case backendErrorResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return rowCount, c.forceClose(rerr.Error())
			}
			op.errCount++
			op.lastErr = wireErrorAsError("", we)

		case backendReadyForQuery:
			st, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return rowCount, c.forceClose(rerr.Error())
			}
			c.SetTransactionState(TransactionState(st[0]))
			c.releaseLock()
			return rowCount, op.lastErr

		case backendCopyInResponse, backendCopyOutResponse, backendRowDescription, backendDataRow:
			// incidental, skipped
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return rowCount, c.forceClose(rerr.Error())
			}

		default:
			return rowCount, c.forceClose(fmt.Sprintf("unexpected message code %q during COPY", rune(code)))
		}
	}
}

// maybeImplicitBegin is StartCopy's and FastpathCall's shared preamble: it
// drains the reclamation tracker and, unless suppressed or already inside a
// transaction, issues "BEGIN" as its own simple-Query round trip before the
// caller's own message is queued (spec §4.3/§4.4).
func (c *Conn) maybeImplicitBegin(suppressBegin bool) *Error {
	c.drainReclamation()
	if suppressBegin || c.txState != TxIdle {
		return nil
	}

	buf := c.wc.Buf()
	buf.StartMessage(queryMsg)
	buf.WriteString("BEGIN")
	buf.FinishMessage()
	if err := c.flushWrites(); err != nil {
		return err
	}
	return c.drainSimpleBegin()
}

// drainSimpleBegin reads the simple-query-protocol reply to an implicit
// "BEGIN" (CommandComplete, then ReadyForQuery), verifying the command tag
// the way the extended-query beginShimHandler does for ordinary execute.
func (c *Conn) drainSimpleBegin() *Error {
	for {
		code, msgLen, err := c.wc.ReadMsgType()
		if err != nil {
			return c.forceClose(err.Error())
		}
		switch code {
		case backendCommandComplete:
			tag, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			if status, _, _ := parseCommandTag(tag); status != "BEGIN" {
				return &Error{Code: CodeProtocolViolation, Message: fmt.Sprintf("pgexec: expected BEGIN, got %q", status)}
			}

		case backendReadyForQuery:
			st, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			c.SetTransactionState(TransactionState(st[0]))
			return nil

		case backendErrorResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			if derr := c.drainToReadyForQuery(); derr != nil {
				return derr
			}
			return wireErrorAsError("", we)

		case backendNoticeResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			c.AddWarning(wireErrorAsError("", we))

		case backendParameterStatus:
			name, rerr := c.wc.ReadString()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			value, rerr := c.wc.ReadString()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			if gerr := c.applyParameterStatus(name, value); gerr != nil {
				return gerr
			}

		case backendAsyncNotify:
			n, rerr := c.readNotification()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			c.AddNotification(n)

		default:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return c.forceClose(rerr.Error())
			}
		}
	}
}

// drainToReadyForQuery discards messages until ReadyForQuery, used to keep
// the connection usable after an error surfaces before Sync/Z has been
// reached.
func (c *Conn) drainToReadyForQuery() *Error {
	for {
		code, msgLen, err := c.wc.ReadMsgType()
		if err != nil {
			return c.forceClose(err.Error())
		}
		if code == backendReadyForQuery {
			st, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			c.SetTransactionState(TransactionState(st[0]))
			return nil
		}
		if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
			return c.forceClose(rerr.Error())
		}
	}
}
