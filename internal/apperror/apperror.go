// Package apperror holds the rule-violation taxonomy shared by the services and
// the HTTP layer.
package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyMember    = errors.New("already member")
	ErrNotMember        = errors.New("not member")
	ErrOwnerCannotLeave = errors.New("owner cannot leave")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnavailable      = errors.New("unavailable")
)

// Error is a rule violation with a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) *Error     { return New(ErrNotFound, message) }
func Forbidden(message string) *Error    { return New(ErrForbidden, message) }
func InvalidInput(message string) *Error { return New(ErrInvalidInput, message) }

var statusByKind = []struct {
	kind   error
	status int
	code   string
}{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrAlreadyMember, http.StatusBadRequest, "ALREADY_MEMBER"},
	{ErrNotMember, http.StatusBadRequest, "NOT_MEMBER"},
	{ErrOwnerCannotLeave, http.StatusBadRequest, "OWNER_CANNOT_LEAVE"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// Status maps err to an HTTP status and a stable code. Unknown errors are 500.
func Status(err error) (int, string) {
	for _, entry := range statusByKind {
		if errors.Is(err, entry.kind) {
			return entry.status, entry.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// Message returns the client-facing text for err. Internal failures never
// leak their cause.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if status, _ := Status(err); status != http.StatusInternalServerError {
		return err.Error()
	}
	return "Internal server error"
}

// Kind returns the taxonomy label used by metrics, or "internal".
func Kind(err error) string {
	for _, entry := range statusByKind {
		if errors.Is(err, entry.kind) {
			return entry.kind.Error()
		}
	}
	return "internal"
}
