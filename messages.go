package pgexec

import "github.com/go-pgexec/pgexec/internal/wire"

// Frontend (client-sent) message type codes, spec §6.
const (
	parseMsg        = wire.MsgType('P')
	bindMsg         = wire.MsgType('B')
	describeMsg     = wire.MsgType('D')
	executeMsg      = wire.MsgType('E')
	closeMsg        = wire.MsgType('C')
	syncMsg         = wire.MsgType('S')
	functionCallMsg = wire.MsgType('F')
	queryMsg        = wire.MsgType('Q')
	copyDataMsg     = wire.MsgType('d')
	copyDoneMsg     = wire.MsgType('c')
	copyFailMsg     = wire.MsgType('f')
)

// Describe/Close sub-codes (spec §6: "with 'S'/'P' sub-code").
const (
	describeStatementCode byte = 'S'
	describePortalCode    byte = 'P'
	closeStatementCode    byte = 'S'
	closePortalCode       byte = 'P'
)

// Backend (server-sent) message type codes consumed by processResults
// (spec §4.2) and processCopyResults (spec §4.4).
const (
	backendAsyncNotify        = wire.MsgType('A')
	backendParseComplete      = wire.MsgType('1')
	backendParameterDesc      = wire.MsgType('t')
	backendBindComplete       = wire.MsgType('2')
	backendCloseComplete      = wire.MsgType('3')
	backendNoData             = wire.MsgType('n')
	backendPortalSuspended    = wire.MsgType('s')
	backendCommandComplete    = wire.MsgType('C')
	backendDataRow            = wire.MsgType('D')
	backendErrorResponse      = wire.MsgType('E')
	backendEmptyQuery         = wire.MsgType('I')
	backendNoticeResponse     = wire.MsgType('N')
	backendParameterStatus    = wire.MsgType('S')
	backendRowDescription     = wire.MsgType('T')
	backendReadyForQuery      = wire.MsgType('Z')
	backendCopyInResponse     = wire.MsgType('G')
	backendCopyOutResponse    = wire.MsgType('H')
	backendCopyData           = wire.MsgType('d')
	backendCopyDone           = wire.MsgType('c')
	backendFunctionCallResult = wire.MsgType('V')
)

// ExecFlags are the bits the caller may OR together and pass to Execute /
// ExecuteBatch (spec §4.2).
type ExecFlags uint32

const (
	// NoResults discards row data; only the command status is reported.
	NoResults ExecFlags = 1 << iota
	// NoMetadata skips the portal Describe. A statement Describe is still
	// sent when the statement's fields and parameter OIDs are unknown.
	NoMetadata
	// ForwardCursor requests a named portal for paging via Fetch.
	ForwardCursor
	// Oneshot avoids allocating a server-side statement name.
	Oneshot
	// DescribeOnly stops the pipeline after Describe.
	DescribeOnly
	// SuppressBegin skips the implicit BEGIN the Executor otherwise
	// opens when the connection is idle.
	SuppressBegin
	// DisallowBatching forces a Sync after every statement.
	DisallowBatching
	// BothRowsAndStatus reports a command's status before its result
	// rows. Both HandleResultRows and HandleCommandStatus are called for
	// every CommandComplete either way; without this flag the rows come
	// first.
	BothRowsAndStatus
)

func (f ExecFlags) has(bit ExecFlags) bool { return f&bit != 0 }
