package pgexec

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-pgexec/pgexec/internal/log"
	"github.com/go-pgexec/pgexec/internal/reclaim"
	"github.com/go-pgexec/pgexec/internal/wire"
)

// Conn is a single PostgreSQL v3 connection: the framed byte stream, the
// five pending-message queues, the reclamation tracker, the transaction
// state, and the COPY cooperative lock, all under one connection-wide
// monitor (spec §5). It assumes netConn has already completed startup
// and authentication — out of scope for this core (spec §1).
type Conn struct {
	mu sync.Mutex

	wc      *wire.Conn
	opts    Options
	tracker *reclaim.Tracker

	txState                    TransactionState
	standardConformingStrings bool
	warnings                   []*Error
	notifications              []Notification

	statementSeq int64
	portalSeq    int64

	pending    pendingQueues
	queryCount int

	lockCond  *sync.Cond
	lockedFor interface{} // current CopyOperation owner; nil == free

	closed bool

	// ProcessID/SecretKey/CancelAddr back SendQueryCancel's out-of-band
	// cancel path (spec §5). Connection establishment is out of scope
	// for this core, so callers that perform their own startup handling
	// must set these before relying on cancelCopy against a CopyOut
	// operation.
	ProcessID  int32
	SecretKey  int32
	CancelAddr string
}

// NewConn wraps an already-established, already-authenticated net.Conn.
func NewConn(netConn net.Conn, opts Options) *Conn {
	opts.init()
	c := &Conn{
		wc:                         wire.NewConn(netConn),
		opts:                       opts,
		tracker:                    reclaim.New(),
		standardConformingStrings: true,
		txState:                    TxIdle,
	}
	c.lockCond = sync.NewCond(&c.mu)
	return c
}

func (c *Conn) nextStatementName() string {
	c.statementSeq++
	return "S_" + strconv.FormatInt(c.statementSeq, 10)
}

func (c *Conn) nextPortalName() string {
	c.portalSeq++
	return "C_" + strconv.FormatInt(c.portalSeq, 10)
}

// --- ProtocolConnection ---

func (c *Conn) Close() error {
	c.closed = true
	return c.wc.Close()
}

func (c *Conn) TransactionState() TransactionState { return c.txState }

func (c *Conn) SetTransactionState(s TransactionState) { c.txState = s }

func (c *Conn) StandardConformingStrings() bool { return c.standardConformingStrings }

func (c *Conn) SetStandardConformingStrings(b bool) { c.standardConformingStrings = b }

func (c *Conn) AddWarning(warn *Error) {
	c.warnings = append(c.warnings, warn)
	log.Logf(c.ProcessID, string(warn.Code), "%s", warn.Message)
}

func (c *Conn) AddNotification(n Notification) {
	c.notifications = append(c.notifications, n)
}

// SendQueryCancel dials CancelAddr and issues the out-of-band
// CancelRequest message (spec §5, §6) — the only cancellation mechanism
// this core exposes, used by cancelCopy against a CopyOut operation.
func (c *Conn) SendQueryCancel() error {
	if c.CancelAddr == "" {
		return &Error{Code: CodeCommunicationError, Message: "pgexec: no cancel address configured"}
	}
	nc, err := net.DialTimeout("tcp", c.CancelAddr, 5*time.Second)
	if err != nil {
		return &Error{Code: CodeConnectionFailure, Message: err.Error()}
	}
	defer nc.Close()

	buf := wire.NewWriteBuffer()
	buf.StartMessage(0)
	buf.WriteInt32(80877102) // CancelRequest code
	buf.WriteInt32(c.ProcessID)
	buf.WriteInt32(c.SecretKey)
	buf.FinishMessage()

	_, err = nc.Write(buf.Take())
	return err
}

// Warnings returns every warning collected so far (handleWarning never
// replaces a prior one, spec §6).
func (c *Conn) Warnings() []*Error { return c.warnings }

// ProcessNotifies synchronously drains any buffered async notifications
// (spec §6). It still takes the connection monitor and waits out any
// held COPY lock so notifications are never observed interleaved with
// an in-flight COPY session's own handling of them.
func (c *Conn) ProcessNotifies() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waitLockFree()
	ns := c.notifications
	c.notifications = nil
	return ns
}

// forceClose closes the socket and marks the connection unusable,
// mirroring the CONNECTION_FAILURE contract of spec §4.2/§7: once the
// byte stream fails, every subsequent operation must fail the same way.
func (c *Conn) forceClose(reason string) *Error {
	_ = c.wc.Close()
	c.closed = true
	log.Logf(c.ProcessID, string(CodeConnectionFailure), "connection force-closed: %s", reason)
	return &Error{Code: CodeConnectionFailure, Message: reason}
}

func (c *Conn) checkClosed() *Error {
	if c.closed {
		return &Error{Code: CodeConnectionFailure, Message: "pgexec: connection is closed"}
	}
	return nil
}

// applyParameterStatus implements the session-invariant guards of spec
// §4.5. A non-nil return means the connection has been force-closed and
// the current processing loop must end.
func (c *Conn) applyParameterStatus(name, value string) *Error {
	switch name {
	case "client_encoding":
		if !validUTF8([]byte(value)) {
			return c.forceClose(fmt.Sprintf("invalid client_encoding payload %q", value))
		}
		if !strings.EqualFold(value, "UTF8") && !strings.EqualFold(value, "UTF-8") && !c.opts.AllowEncodingChanges {
			return c.forceClose(fmt.Sprintf("unsupported client_encoding %q", value))
		}
	case "DateStyle":
		if !strings.HasPrefix(value, "ISO,") {
			return c.forceClose(fmt.Sprintf("unsupported DateStyle %q", value))
		}
	case "standard_conforming_strings":
		switch value {
		case "on":
			c.standardConformingStrings = true
		case "off":
			c.standardConformingStrings = false
		default:
			return c.forceClose(fmt.Sprintf("unexpected standard_conforming_strings %q", value))
		}
	}
	return nil
}

// --- COPY cooperative lock (spec §5, §4.4) ---

// waitLockFree blocks while some CopyOperation currently owns the
// connection. Callers must hold c.mu. Used by every public entry point
// that is not itself part of an in-progress COPY session.
func (c *Conn) waitLockFree() {
	for c.lockedFor != nil {
		c.lockCond.Wait()
	}
}

// acquireLock assigns the cooperative lock to op. Callers must hold c.mu
// and must have already called waitLockFree.
func (c *Conn) acquireLock(op interface{}) {
	c.lockedFor = op
}

// hasLock reports whether op currently owns the cooperative lock.
func (c *Conn) hasLock(op interface{}) bool {
	return c.lockedFor == op
}

// releaseLock frees the cooperative lock and wakes any waiters. Callers
// must hold c.mu.
func (c *Conn) releaseLock() {
	c.lockedFor = nil
	c.lockCond.Broadcast()
}
