package pgexec

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pgexec/pgexec/internal/log"
	hex "github.com/tmthrgd/go-hex"
)

// maxBindSize is the 0x3fffffff cap from spec §4.2 step 4 on a Bind
// message's total encoded parameter size.
const maxBindSize = 0x3fffffff

// maxColumnLen stands in for the allocation-failure detection a JVM-based
// implementation gets for free from an OutOfMemoryError: Go does not
// surface a catchable error for a merely large (but not fatal)
// allocation, so a DataRow column claiming to be larger than this is
// treated as the OUT_OF_MEMORY case in spec §7 instead.
const maxColumnLen = 1 << 30

// Execute drives the extended-query pipeline for one Query (spec §4.2,
// §6).
func (c *Conn) Execute(query *Query, params *ParameterList, handler ResultHandler, maxRows, fetchSize int, flags ExecFlags) *Error {
	return c.ExecuteBatch([]*Query{query}, []*ParameterList{params}, handler, maxRows, fetchSize, flags)
}

// ExecuteBatch is the array form of Execute (spec §6, "batch variant").
func (c *Conn) ExecuteBatch(queries []*Query, paramsList []*ParameterList, handler ResultHandler, maxRows, fetchSize int, flags ExecFlags) *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waitLockFree()

	if err := c.checkClosed(); err != nil {
		handler.HandleError(err)
		handler.HandleCompletion()
		return err
	}

	activeHandler, err := c.sendQueryPreamble(handler, flags)
	if err != nil {
		handler.HandleError(err)
		handler.HandleCompletion()
		return err
	}

	var sendErr *Error
batchLoop:
	for qi, q := range queries {
		params := paramsList[qi]
		for si, stmt := range q.stmts {
			subParams := q.paramsFor(si, params)
			if serr := c.sendOneQuery(stmt, subParams, flags, maxRows, fetchSize, activeHandler); serr != nil {
				sendErr = serr
				break batchLoop
			}
		}
	}

	c.emitSync()
	if ferr := c.flushWrites(); ferr != nil {
		activeHandler.HandleError(ferr)
		activeHandler.HandleCompletion()
		return ferr
	}

	perr := c.processResults(activeHandler, flags)
	c.queryCount = 0

	if shim, ok := activeHandler.(*beginShimHandler); ok && shim.violation != nil && perr == nil {
		perr = shim.violation
	}

	// spec §9 open question: a bind-exception on a single-statement
	// execute still lets Sync/processResults run to completion before
	// the bind error is surfaced to the caller.
	if sendErr != nil {
		activeHandler.HandleError(sendErr)
		activeHandler.HandleCompletion()
		return sendErr
	}
	activeHandler.HandleCompletion()
	return perr
}

// Fetch continues an open forward-cursor portal (spec §6).
func (c *Conn) Fetch(cursor *Portal, handler ResultHandler, fetchSize int) *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waitLockFree()

	if err := c.checkClosed(); err != nil {
		handler.HandleError(err)
		handler.HandleCompletion()
		return err
	}

	// safe point (spec §4.6)
	c.drainReclamation()

	c.emitExecute(cursor.name, fetchSize)
	c.pending.pushExecute(pendingExecuteEntry{stmt: cursor.stmt, portal: cursor})
	c.queryCount++

	c.emitSync()
	if ferr := c.flushWrites(); ferr != nil {
		handler.HandleError(ferr)
		handler.HandleCompletion()
		return ferr
	}

	perr := c.processResults(handler, 0)
	c.queryCount = 0
	handler.HandleCompletion()
	return perr
}

// sendQueryPreamble drains the reclamation tracker and, unless
// SuppressBegin is set or the transaction is already open/failed,
// queues an implicit one-shot BEGIN behind a shim handler that
// intercepts its CommandComplete (spec §4.2).
func (c *Conn) sendQueryPreamble(handler ResultHandler, flags ExecFlags) (ResultHandler, *Error) {
	c.drainReclamation()

	if flags.has(SuppressBegin) || c.txState != TxIdle {
		return handler, nil
	}

	shim := &beginShimHandler{real: handler}
	beginStmt := &preparedStatement{fragments: []string{"BEGIN"}}
	if err := c.sendOneQuery(beginStmt, NewParameterList(0), Oneshot|NoMetadata|NoResults, 0, 0, shim); err != nil {
		return handler, err
	}
	return shim, nil
}

// beginShimHandler wraps the caller's ResultHandler for the span of one
// execute() call when an implicit BEGIN was queued. It consumes the
// first CommandComplete (verifying it reads "BEGIN") and, per spec §9's
// documented asymmetry, treats a NoticeResponse arriving before that
// point as an error rather than a warning: the notice itself is not
// passed to the caller's HandleWarning and becomes the error the execute
// call returns — every other path in this core treats NoticeResponse as
// a plain warning.
type beginShimHandler struct {
	real      ResultHandler
	consumed  bool
	violation *Error
}

func (s *beginShimHandler) HandleResultRows(stmt *preparedStatement, fields []Field, tuples [][][]byte, cursor *Portal) {
	s.real.HandleResultRows(stmt, fields, tuples, cursor)
}

func (s *beginShimHandler) HandleCommandStatus(status string, updateCount int64, insertOID OID) {
	if !s.consumed {
		s.consumed = true
		if status != "BEGIN" {
			s.violation = &Error{Code: CodeProtocolViolation, Message: fmt.Sprintf("pgexec: expected BEGIN, got %q", status)}
		}
		return
	}
	s.real.HandleCommandStatus(status, updateCount, insertOID)
}

func (s *beginShimHandler) HandleWarning(warn *Error) {
	if !s.consumed && s.violation == nil {
		s.violation = warn
		return
	}
	s.real.HandleWarning(warn)
}

func (s *beginShimHandler) HandleError(err *Error) { s.real.HandleError(err) }
func (s *beginShimHandler) HandleCompletion()      { s.real.HandleCompletion() }

// sendOneQuery implements spec §4.2's per-statement pipeline: Parse,
// DescribeStatement, (OID adoption), Bind, DescribePortal, Execute.
func (c *Conn) sendOneQuery(stmt *preparedStatement, params *ParameterList, flags ExecFlags, maxRows, fetchSize int, handler ResultHandler) *Error {
	if err := c.maybeSync(flags, handler); err != nil {
		return err
	}

	usePortal := flags.has(ForwardCursor) && !flags.has(NoResults) && !flags.has(NoMetadata) && fetchSize > 0 && !flags.has(DescribeOnly)
	oneShot := flags.has(Oneshot) && !usePortal
	describeOnly := flags.has(DescribeOnly)

	var rowCap int
	switch {
	case flags.has(NoResults):
		rowCap = 1
	case !usePortal:
		rowCap = maxRows
	case maxRows == 0:
		rowCap = fetchSize
	case fetchSize < maxRows:
		rowCap = fetchSize
	default:
		rowCap = maxRows
	}

	// 1. Parse
	needParse := stmt.name == "" || !oidsEqual(stmt.paramOIDs, params.OIDs())
	if needParse {
		parseName := ""
		if !oneShot {
			parseName = c.nextStatementName()
		}
		c.emitParse(stmt, parseName, params)
		stmt.name = parseName
		stmt.paramOIDs = append([]OID(nil), params.OIDs()...)
		stmt.statementDescribed = false
		stmt.portalDescribed = false
		c.pending.pushParse(stmt, parseName)
	}

	// 2. DescribeStatement
	needDescribeStatement := describeOnly ||
		(!stmt.fieldsKnown() && hasUnresolvedOIDs(params) && !oneShot && !stmt.statementDescribed)
	if needDescribeStatement {
		c.emitDescribeStatement(stmt.name)
		c.pending.pushDescribeStatement(pendingDescribeStatementEntry{
			stmt: stmt, params: params, describeOnly: describeOnly, name: stmt.name,
		})
		// DescribeStatement's own reply already ends in a
		// RowDescription/NoData, which doubles as this statement's
		// portal describe (step 5's skip rule) — route it through the
		// same queue, tagged so processResults also closes out the
		// describe-statement entry when it arrives.
		c.pending.pushDescribePortal(pendingDescribePortalEntry{stmt: stmt, alsoStatementDescribeTail: true})
		if describeOnly {
			return nil
		}
	}

	// 3. OID adoption
	if stmt.fieldsKnown() && hasUnresolvedOIDs(params) {
		params.AdoptOIDs(stmt.paramOIDs)
	}

	for i := 0; i < params.Len(); i++ {
		if params.IsUnset(i) {
			return &Error{Code: CodeInvalidParameter, Message: "parameter " + strconv.Itoa(i) + " is unset"}
		}
	}

	// 4. Bind
	portalName := ""
	var portal *Portal
	if usePortal {
		portalName = c.nextPortalName()
		portal = newPortal(portalName, stmt)
	}
	if err := c.emitBind(stmt, portalName, params); err != nil {
		return err
	}
	c.pending.pushBind(portal)

	// 5. DescribePortal
	if !flags.has(NoMetadata) && !needDescribeStatement && !stmt.portalDescribed {
		c.emitDescribePortal(portalName)
		c.pending.pushDescribePortal(pendingDescribePortalEntry{stmt: stmt, alsoStatementDescribeTail: false})
	}

	// 6. Execute
	c.emitExecute(portalName, rowCap)
	c.pending.pushExecute(pendingExecuteEntry{stmt: stmt, portal: portal})

	c.queryCount++
	log.Logf(c.ProcessID, "", "scheduled statement %s (portal=%q)", stmt.name, portalName)
	return nil
}

// maybeSync implements spec §4.2/§9's deadlock-avoidance batching: the
// forced Sync happens *before* sending the statement that would trip the
// counter, not after, preserving the source's documented (possibly
// accidental) ordering.
func (c *Conn) maybeSync(flags ExecFlags, handler ResultHandler) *Error {
	if c.queryCount == 0 {
		return nil
	}
	forceSync := flags.has(DisallowBatching) || c.opts.DisallowBatching || c.queryCount >= c.opts.MaxBufferedQueries
	if !forceSync {
		return nil
	}
	log.Logf(c.ProcessID, "", "forced mid-batch Sync at statement count %d", c.queryCount)
	c.emitSync()
	if err := c.flushWrites(); err != nil {
		return err
	}
	if err := c.processResults(handler, flags); err != nil {
		return err
	}
	c.queryCount = 0
	return nil
}

// drainReclamation emits Close Statement/Close Portal for every name the
// reclamation tracker has queued (spec §4.6). It only appends to the
// write buffer; the next Flush (forced sync or the caller's own) carries
// them to the wire.
func (c *Conn) drainReclamation() {
	for _, name := range c.tracker.DrainStatements() {
		c.emitClose(closeStatementCode, name)
		log.Logf(c.ProcessID, "", "reclaiming statement %s", name)
	}
	for _, name := range c.tracker.DrainPortals() {
		c.emitClose(closePortalCode, name)
		log.Logf(c.ProcessID, "", "reclaiming portal %s", name)
	}
}

// processResults is the demultiplexer of spec §4.2: it reads one typed
// message at a time until ReadyForQuery, correlating replies against the
// five pending queues.
func (c *Conn) processResults(handler ResultHandler, flags ExecFlags) *Error {
	c.wc.SetReadTimeout(c.opts.ReadTimeout)

	var errs ErrorList
	var tuples [][][]byte

	for {
		code, msgLen, err := c.wc.ReadMsgType()
		if err != nil {
			return c.forceClose(err.Error())
		}

		switch code {
		case backendAsyncNotify:
			n, rerr := c.readNotification()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			c.AddNotification(n)

		case backendParseComplete:
			if entry, ok := c.pending.popParse(); ok {
				c.tracker.TrackStatement(entry.stmt, entry.name)
			}

		case backendParameterDesc:
			entry, ok := c.pending.peekDescribeStatement()
			if !ok {
				return c.forceClose("unexpected ParameterDescription with no pending describe")
			}
			oids, rerr := c.readParameterDescription()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			if entry.name == entry.stmt.name {
				entry.stmt.paramOIDs = oids
				if entry.params != nil {
					entry.params.AdoptOIDs(oids)
				}
			}

		case backendBindComplete:
			if portal, ok := c.pending.popBind(); ok && portal != nil {
				c.tracker.TrackPortal(portal, portal.name)
			}

		case backendCloseComplete:
			// ignored, per spec §4.2/§4.6.

		case backendNoData:
			if entry, ok := c.pending.popDescribePortal(); ok {
				entry.stmt.portalDescribed = true
				if entry.alsoStatementDescribeTail {
					if dsEntry, ok2 := c.pending.popDescribeStatement(); ok2 {
						c.finishDescribeStatementTail(dsEntry, handler, nil)
					}
				}
			}

		case backendPortalSuspended:
			entry, ok := c.pending.popExecute()
			if !ok {
				return c.forceClose("unexpected PortalSuspended with no pending execute")
			}
			handler.HandleResultRows(entry.stmt, entry.stmt.fields, tuples, entry.portal)
			tuples = nil

		case backendCommandComplete:
			entry, ok := c.pending.popExecute()
			if !ok {
				return c.forceClose("unexpected CommandComplete with no pending execute")
			}
			tagBytes, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			status, updateCount, insertOID := parseCommandTag(tagBytes)
			rowsFn := func() { handler.HandleResultRows(entry.stmt, entry.stmt.fields, tuples, nil) }
			statusFn := func() { handler.HandleCommandStatus(status, updateCount, insertOID) }
			if flags.has(BothRowsAndStatus) {
				statusFn()
				rowsFn()
			} else {
				rowsFn()
				statusFn()
			}
			tuples = nil
			if entry.portal != nil {
				c.emitClose(closePortalCode, entry.portal.name)
			}

		case backendDataRow:
			row, rerr := c.readDataRow(&errs)
			if rerr != nil {
				return rerr
			}
			tuples = append(tuples, row)

		case backendErrorResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			e := wireErrorAsError("", we)
			errs.Add(e)
			handler.HandleError(e)

		case backendEmptyQuery:
			if _, ok := c.pending.popExecute(); ok {
				handler.HandleCommandStatus("EMPTY", 0, Unspecified)
			}

		case backendNoticeResponse:
			we, rerr := c.wc.ReadWireError()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			warn := wireErrorAsError("", we)
			c.AddWarning(warn)
			handler.HandleWarning(warn)

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
				handler.HandleError(gerr)
				return gerr
			}

		case backendRowDescription:
			fields, rerr := c.readRowDescription()
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			if entry, ok := c.pending.popDescribePortal(); ok {
				entry.stmt.fields = fields
				entry.stmt.portalDescribed = true
				if entry.alsoStatementDescribeTail {
					if dsEntry, ok2 := c.pending.popDescribeStatement(); ok2 {
						c.finishDescribeStatementTail(dsEntry, handler, fields)
					}
				}
			}

		case backendReadyForQuery:
			status, rerr := c.wc.ReadN(msgLen)
			if rerr != nil {
				return c.forceClose(rerr.Error())
			}
			c.SetTransactionState(TransactionState(status[0]))
			c.unprepareFailedParses()
			c.pending.clear()
			return errs.First()

		case backendCopyInResponse:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return c.forceClose(rerr.Error())
			}
			c.emitCopyFail("COPY not supported at this entry point")
			if ferr := c.flushWrites(); ferr != nil {
				return ferr
			}
			e := &Error{Code: CodeNotImplemented, Message: "pgexec: COPY is not supported via execute; use StartCopy"}
			errs.Add(e)
			handler.HandleError(e)

		case backendCopyOutResponse:
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return c.forceClose(rerr.Error())
			}
			e := &Error{Code: CodeNotImplemented, Message: "pgexec: COPY is not supported via execute; use StartCopy"}
			errs.Add(e)
			handler.HandleError(e)

		case backendCopyData, backendCopyDone:
			// Only reachable after a rejected CopyIn/CopyOut above;
			// drain and discard so the window still reaches Z cleanly.
			if _, rerr := c.wc.ReadN(msgLen); rerr != nil {
				return c.forceClose(rerr.Error())
			}

		default:
			n := msgLen
			if n > 32 {
				n = 32
			}
			sample, _ := c.wc.ReadN(n)
			return c.forceClose(fmt.Sprintf("unexpected message code %q (payload %s)", rune(code), hex.EncodeToString(sample)))
		}
	}
}

// finishDescribeStatementTail closes out a pendingDescribeStatement entry
// whose RowDescription/NoData rode in on a statement-describe response
// rather than a standalone portal describe (spec §4.2, code 'n'/'T').
func (c *Conn) finishDescribeStatementTail(e pendingDescribeStatementEntry, handler ResultHandler, fields []Field) {
	if !e.describeOnly {
		return
	}
	if fields != nil {
		handler.HandleResultRows(e.stmt, fields, nil, nil)
		return
	}
	if e.stmt.fieldsKnown() {
		handler.HandleResultRows(e.stmt, e.stmt.fields, nil, nil)
	}
}

// unprepareFailedParses resets any statement whose Parse never reached
// ParseComplete (an ErrorResponse aborted the window first) so a future
// execute re-Parses it instead of reusing a name the server never
// actually bound (spec §4.2, code 'Z').
func (c *Conn) unprepareFailedParses() {
	for _, e := range c.pending.parses {
		e.stmt.name = ""
		e.stmt.paramOIDs = nil
		e.stmt.statementDescribed = false
		e.stmt.portalDescribed = false
	}
}

func hasUnresolvedOIDs(params *ParameterList) bool {
	for i := 0; i < params.Len(); i++ {
		if params.Get(i).OID() == Unspecified {
			return true
		}
	}
	return false
}

func oidsEqual(a, b []OID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseCommandTag splits a CommandComplete payload like "INSERT 0 1" or
// "UPDATE 5" into its status text, reported row count, and (INSERT only)
// inserted-row OID. The row count is parsed only for INSERT, UPDATE,
// DELETE, MOVE, FETCH and COPY; every other tag (SELECT included)
// reports 0.
func parseCommandTag(tag []byte) (status string, updateCount int64, insertOID OID) {
	s := strings.TrimRight(string(tag), "\x00")
	status = s
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return status, 0, Unspecified
	}
	switch parts[0] {
	case "INSERT":
		if len(parts) >= 3 {
			if oid, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
				insertOID = OID(oid)
			}
			if n, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
				updateCount = n
			}
		}
	case "UPDATE", "DELETE", "MOVE", "FETCH", "COPY":
		if len(parts) >= 2 {
			if n, err := strconv.ParseInt(parts[len(parts)-1], 10, 64); err == nil {
				updateCount = n
			}
		}
	}
	return status, updateCount, insertOID
}

// --- wire encoders/decoders ---

func (c *Conn) emitParse(stmt *preparedStatement, name string, params *ParameterList) {
	buf := c.wc.Buf()
	buf.StartMessage(parseMsg)
	buf.WriteString(name)
	buf.WriteString(stmt.text())
	n := params.Len()
	buf.WriteInt16(int16(n))
	for i := 0; i < n; i++ {
		buf.WriteInt32(int32(params.Get(i).OID()))
	}
	buf.FinishMessage()
	log.LogQuery(c.ProcessID, stmt.text())
}

func (c *Conn) emitDescribeStatement(name string) {
	buf := c.wc.Buf()
	buf.StartMessage(describeMsg)
	buf.WriteByte(describeStatementCode)
	buf.WriteString(name)
	buf.FinishMessage()
}

func (c *Conn) emitDescribePortal(name string) {
	buf := c.wc.Buf()
	buf.StartMessage(describeMsg)
	buf.WriteByte(describePortalCode)
	buf.WriteString(name)
	buf.FinishMessage()
}

func (c *Conn) emitBind(stmt *preparedStatement, portalName string, params *ParameterList) *Error {
	n := params.Len()
	total := 0
	for i := 0; i < n; i++ {
		v := params.Get(i)
		if !v.IsNull() {
			total += len(v.Bytes())
		}
	}
	if total > maxBindSize {
		return &Error{Code: CodeInvalidParameter, Message: "bind parameters exceed maximum encoded size"}
	}

	buf := c.wc.Buf()
	buf.StartMessage(bindMsg)
	buf.WriteString(portalName)
	buf.WriteString(stmt.name)

	buf.WriteInt16(int16(n))
	for i := 0; i < n; i++ {
		if params.Get(i).Binary() {
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

	buf.WriteInt16(1)
	buf.WriteInt16(0) // result format: text

	buf.FinishMessage()
	return nil
}

func (c *Conn) emitExecute(portalName string, rowCap int) {
	buf := c.wc.Buf()
	buf.StartMessage(executeMsg)
	buf.WriteString(portalName)
	buf.WriteInt32(int32(rowCap))
	buf.FinishMessage()
}

func (c *Conn) emitSync() {
	buf := c.wc.Buf()
	buf.StartMessage(syncMsg)
	buf.FinishMessage()
}

func (c *Conn) emitClose(code byte, name string) {
	buf := c.wc.Buf()
	buf.StartMessage(closeMsg)
	buf.WriteByte(code)
	buf.WriteString(name)
	buf.FinishMessage()
}

func (c *Conn) emitCopyFail(reason string) {
	buf := c.wc.Buf()
	buf.StartMessage(copyFailMsg)
	buf.WriteString(reason)
	buf.FinishMessage()
}

func (c *Conn) flushWrites() *Error {
	c.wc.SetWriteTimeout(c.opts.WriteTimeout)
	if err := c.wc.Flush(); err != nil {
		return c.forceClose(err.Error())
	}
	return nil
}

func (c *Conn) readNotification() (Notification, error) {
	pid, err := c.wc.ReadInt32()
	if err != nil {
		return Notification{}, err
	}
	channel, err := c.wc.ReadString()
	if err != nil {
		return Notification{}, err
	}
	payload, err := c.wc.ReadString()
	if err != nil {
		return Notification{}, err
	}
	return Notification{ProcessID: pid, Channel: channel, Payload: payload}, nil
}

func (c *Conn) readParameterDescription() ([]OID, error) {
	n, err := c.wc.ReadInt16()
	if err != nil {
		return nil, err
	}
	oids := make([]OID, n)
	for i := range oids {
		v, err := c.wc.ReadInt32()
		if err != nil {
			return nil, err
		}
		oids[i] = OID(v)
	}
	return oids, nil
}

func (c *Conn) readRowDescription() ([]Field, error) {
	n, err := c.wc.ReadInt16()
	if err != nil {
		return nil, err
	}
	fields := make([]Field, n)
	for i := range fields {
		name, err := c.wc.ReadString()
		if err != nil {
			return nil, err
		}
		rest, err := c.wc.ReadN(18)
		if err != nil {
			return nil, err
		}
		fields[i] = Field{
			Name:          name,
			TableOID:      OID(binary.BigEndian.Uint32(rest[0:4])),
			ColumnAttrNum: int16(binary.BigEndian.Uint16(rest[4:6])),
			TypeOID:       OID(binary.BigEndian.Uint32(rest[6:10])),
			TypeLen:       int16(binary.BigEndian.Uint16(rest[10:12])),
			TypeMod:       int32(binary.BigEndian.Uint32(rest[12:16])),
			Format:        int16(binary.BigEndian.Uint16(rest[16:18])),
		}
	}
	return fields, nil
}

func (c *Conn) readDataRow(errs *ErrorList) ([][]byte, *Error) {
	n, err := c.wc.ReadInt16()
	if err != nil {
		return nil, c.forceClose(err.Error())
	}
	row := make([][]byte, n)
	for i := range row {
		l, err := c.wc.ReadInt32()
		if err != nil {
			return nil, c.forceClose(err.Error())
		}
		switch {
		case l == -1:
		case l < -1:
			return nil, c.forceClose(fmt.Sprintf("negative column length %d", l))
		case l > maxColumnLen:
			if _, err := c.wc.ReadN(int(l)); err != nil {
				return nil, c.forceClose(err.Error())
			}
			errs.Add(&Error{Code: CodeOutOfMemory, Message: "column exceeds maximum size"})
		default:
			b, err := c.wc.ReadN(int(l))
			if err != nil {
				return nil, c.forceClose(err.Error())
			}
			cp := make([]byte, len(b))
			copy(cp, b)
			row[i] = cp
		}
	}
	return row, nil
}
