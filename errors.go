package pgexec

import (
	"fmt"

	"github.com/go-pgexec/pgexec/internal/wire"
)

// Code classifies an Error the way the teacher's error.go distinguishes
// pgError/IntegrityError by SQLSTATE class, generalized here to the
// seven kinds spec §7/§11 name instead of Postgres's SQLSTATE classes.
type Code string

const (
	CodeConnectionFailure  Code = "CONNECTION_FAILURE"
	CodeProtocolViolation  Code = "PROTOCOL_VIOLATION"
	CodeObjectNotInState   Code = "OBJECT_NOT_IN_STATE"
	CodeInvalidParameter   Code = "INVALID_PARAMETER_VALUE"
	CodeCommunicationError Code = "COMMUNICATION_ERROR"
	CodeNotImplemented     Code = "NOT_IMPLEMENTED"
	CodeOutOfMemory        Code = "OUT_OF_MEMORY"
)

// WireError is the decoded field set of a backend ErrorResponse or
// NoticeResponse, re-exported from internal/wire so callers never need
// to import that package directly.
type WireError = wire.WireError

// Error is this driver's single error type: a Code plus a human message,
// optionally wrapping the raw server ErrorResponse/NoticeResponse that
// produced it.
type Error struct {
	Code    Code
	Message string
	Wire    *WireError
}

func (e *Error) Error() string {
	if e.Wire != nil {
		return fmt.Sprintf("pgexec: %s: %s", e.Code, e.Wire.Error())
	}
	return fmt.Sprintf("pgexec: %s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped WireError to errors.As/errors.Is callers.
func (e *Error) Unwrap() error {
	if e.Wire == nil {
		return nil
	}
	return e.Wire
}

func wireErrorAsError(code Code, we *wire.WireError) *Error {
	return &Error{Code: code, Message: we.Field('M'), Wire: we}
}

// ErrorList accumulates every handleError invocation within one Sync
// window (spec §6/§7: "Multiple handleError invocations are allowed;
// errors must be collected, not replace each other"). The first entry is
// what gets raised to the caller once ReadyForQuery closes the window.
type ErrorList struct {
	errs []*Error
}

func (l *ErrorList) Add(e *Error) {
	if e == nil {
		return
	}
	l.errs = append(l.errs, e)
}

func (l *ErrorList) Empty() bool { return len(l.errs) == 0 }

// First returns the first collected error, or nil if none were collected.
func (l *ErrorList) First() *Error {
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs[0]
}

// All returns every collected error, in arrival order.
func (l *ErrorList) All() []*Error { return l.errs }
