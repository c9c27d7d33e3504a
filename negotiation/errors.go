package negotiation

import (
	"errors"
	"fmt"
)

// Kind classifies a negotiation failure. Handlers map kinds to HTTP status
// codes: validation and invalid-transition to 400, not-found to 404,
// authorization to 403, everything else to 500.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindInvalidTransition
)

// Error carries a kind plus a message safe to return to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from err, defaulting to KindUnexpected.
func KindOf(err error) Kind {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return KindUnexpected
}

// Message returns the caller-safe message for err. Unexpected errors get a
// generic message so internal detail is never leaked.
func Message(err error) string {
	var ne *Error
	if errors.As(err, &ne) && ne.Kind != KindUnexpected {
		return ne.Message
	}
	return "Server error"
}

func validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func invalidTransitionf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "Server error", Err: err}
}
