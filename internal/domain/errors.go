package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures so callers can map them to
// user-facing behaviour without string matching.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindInvalidState    ErrorKind = "invalid_state"
	KindInvalidTarget   ErrorKind = "invalid_target"
	KindSlotUnavailable ErrorKind = "slot_unavailable"
	KindNotFound        ErrorKind = "not_found"
)

// Error is the typed error returned by every engine operation. State is
// never partially mutated when one of these is returned.
type Error struct {
	Kind    ErrorKind
	Message string

	// MissingFields lists form fields that failed validation.
	MissingFields []string

	// Conflicts carries the bookings that overlap a rejected booking
	// attempt, so the caller can surface them.
	Conflicts []Booking
}

func (e *Error) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("%s: %s (fields: %s)", e.Kind, e.Message, strings.Join(e.MissingFields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func UnauthorizedError(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func InvalidStateError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
