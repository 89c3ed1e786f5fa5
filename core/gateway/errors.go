package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/relabs-tech/tablegate/core/csql"
)

// Kind classifies gateway failures. Every kind maps to exactly one HTTP status.
type Kind int

// the failure kinds of the gateway
const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindTableNotFound
	KindDatabaseUnavailable
	KindOperationFailed
	KindNotFound
)

var kindNames = map[Kind]string{
	KindBadRequest:          "BadRequest",
	KindUnauthorized:        "Unauthorized",
	KindForbidden:           "Forbidden",
	KindTableNotFound:       "TableNotFound",
	KindDatabaseUnavailable: "DatabaseUnavailable",
	KindOperationFailed:     "OperationFailed",
	KindNotFound:            "NotFound",
}

var kindStatus = map[Kind]int{
	KindBadRequest:          http.StatusBadRequest,
	KindUnauthorized:        http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindTableNotFound:       http.StatusNotFound,
	KindDatabaseUnavailable: http.StatusServiceUnavailable,
	KindOperationFailed:     http.StatusInternalServerError,
	KindNotFound:            http.StatusNotFound,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Status returns the HTTP status code for the kind
func (k Kind) Status() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is the error returned by all gateway operations
type Error struct {
	Kind    Kind
	Message string
	// Details is an optional explanation, typically the message of the underlying cause
	Details string
	// Database is the target which served the request, if the table was resolved
	Database csql.Target
	Err      error
}

// the sentinel errors, compare with errors.Is
var (
	ErrBadRequest          = &Error{Kind: KindBadRequest}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrTableNotFound       = &Error{Kind: KindTableNotFound}
	ErrDatabaseUnavailable = &Error{Kind: KindDatabaseUnavailable}
	ErrOperationFailed     = &Error{Kind: KindOperationFailed}
	ErrNotFound            = &Error{Kind: KindNotFound}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error
func (e *Error) Status() int {
	return e.Kind.Status()
}

func newError(kind Kind, message string, cause error) *Error {
	e := &Error{Kind: kind, Message: message, Err: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// executionFailed reports a statement which did not complete on target. A request
// context that expired or was canceled meanwhile is reported as unavailable.
func executionFailed(message string, target csql.Target, cause error) *Error {
	kind := KindOperationFailed
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		kind, message = KindDatabaseUnavailable, "Database unavailable"
	}
	e := newError(kind, message, cause)
	e.Database = target
	return e
}
