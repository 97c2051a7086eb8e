package pgexec

import "fmt"

// FastpathCall issues a legacy FunctionCall message for fnid with params
// (spec §4.3). Unless suppressBegin is set, an implicit BEGIN is issued
// first via the same shim pattern as StartCopy. The single binary result
// is returned verbatim; a nil slice with a nil error means the server
// returned SQL NULL.
func (c *Conn) FastpathCall(fnid OID, params *ParameterList, suppressBegin bool) ([]byte, *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waitLockFree()

	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if err := c.maybeImplicitBegin(suppressBegin); err != nil {
		return nil, err
	}

	c.emitFunctionCall(fnid, params)
	buf := c.wc.Buf()
	buf.StartMessage(syncMsg)
	buf.FinishMessage()
	if err := c.flushWrites(); err != nil {
		return nil, err
	}

	return c.receiveFastpathResult()
}

func (c *Conn) emitFunctionCall(fnid OID, params *ParameterList) {
	buf := c.wc.Buf()
	buf.StartMessage(functionCallMsg)
	buf.WriteInt32(int32(fnid))

	n := params.Len()
	buf.WriteInt16(int16(n))
	for i := 0; i < n; i++ {
		v := params.Get(i)
		if v.Binary() {
			buf.WriteInt16(1)
		} else {
			buf.WriteInt16(0)
		}
	}

	buf.WriteInt16(int16(n))
	for i := 0; i < n; i++ {
		v := params.Get(i)
		buf.StartMessage(0)
		if v.IsNull() {
			buf.FinishNullParam()
			continue
		}
		buf.WriteBytes(v.Bytes())
		buf.FinishParam()
	}

	buf.WriteInt16(1) // result is always requested in binary format
	buf.FinishMessage()
}

// receiveFastpathResult implements the A/E/N/Z/V loop of spec §4.3: every
// error seen before ReadyForQuery is accumulated and the first one (if any)
// is what gets raised once Z arrives.
func (c *Conn) receiveFastpathResult() ([]byte, *Error) {
	var errs ErrorList
	var result []byte
	var gotResult bool

	for {
		code, msgLen, err := c.wc.ReadMsgType()
		if err != nil {
			return nil, c.forceClose(err.Error())
		}
		switch code {
		case backendFunctionCallResult:
			n, rerr := c.wc.ReadInt32()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			if n < 0 {
				result = nil
			} else {
				data, rerr := c.wc.ReadN(int(n))
				if rerr != nil {
					return nil, c.forceClose(rerr.Error())
				}
				cp := make([]byte, len(data))
				copy(cp, data)
				result = cp
			}
			gotResult = true

		case backendAsyncNotify:
			note, rerr := c.readNotification()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			c.AddNotification(note)

		case backendNoticeResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			c.AddWarning(wireErrorAsError("", we))

		case backendErrorResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			errs.Add(wireErrorAsError("", we))

		case backendReadyForQuery:
			st, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return nil, c.forceClose(rerr.Error())
			}
			c.SetTransactionState(TransactionState(st[0]))
			if !errs.Empty() {
				return nil, errs.First()
			}
			if !gotResult {
				return nil, nil
			}
			return result, nil

		default:
			return nil, c.forceClose(fmt.Sprintf("unexpected message code %q during fastpath call", rune(code)))
		}
	}
}
