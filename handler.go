package pgexec

// TransactionState mirrors the server-reported status byte of
// ReadyForQuery (spec §3, §GLOSSARY). Updated only on receipt of
// ReadyForQuery, never inferred from anything else on the wire.
type TransactionState byte

const (
	TxIdle   TransactionState = 'I'
	TxOpen   TransactionState = 'T'
	TxFailed TransactionState = 'E'
)

func (s TransactionState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxOpen:
		return "open"
	case TxFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Notification is one asynchronous NotifyResponse (spec §4.2, code 'A').
type Notification struct {
	ProcessID int32
	Channel   string
	Payload   string
}

// ResultHandler is the downward interface the Executor reports into
// (spec §6, "Result Handler capability set"). Multiple HandleError
// invocations are allowed within one Sync window; implementations must
// collect them rather than overwrite a prior call.
type ResultHandler interface {
	// HandleResultRows delivers one batch of rows for stmt. cursor is
	// non-nil when the batch ended in PortalSuspended rather than
	// CommandComplete (a Fetch continuation is possible).
	HandleResultRows(stmt *preparedStatement, fields []Field, tuples [][][]byte, cursor *Portal)
	// HandleCommandStatus delivers a command tag like "SELECT 1" or
	// "INSERT 0 1", its reported row count (0 for tags that carry none
	// here, SELECT included), and (for a single-row INSERT into a table
	// with OIDs) the inserted row's OID.
	HandleCommandStatus(status string, updateCount int64, insertOID OID)
	HandleWarning(warn *Error)
	HandleError(err *Error)
	HandleCompletion()
}

// ProtocolConnection is the downward interface the Executor drives
// (spec §6). A Conn (conn.go) implements it; tests may supply a fake.
type ProtocolConnection interface {
	Close() error
	TransactionState() TransactionState
	SetTransactionState(TransactionState)
	StandardConformingStrings() bool
	SetStandardConformingStrings(bool)
	AddWarning(warn *Error)
	AddNotification(n Notification)
	// SendQueryCancel opens a side-channel connection to the server's
	// cancel port (spec §5, "Cancellation & timeouts") — used only by
	// cancelCopy on a CopyOut operation.
	SendQueryCancel() error
}
