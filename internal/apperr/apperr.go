package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error so the API layer can map it to an HTTP
// status without inspecting error strings.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindInsufficientFunds
	KindUpstreamFetch
)

// Error is a domain error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func InsufficientFunds(message string) *Error {
	return New(KindInsufficientFunds, message)
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code returned at the API boundary.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInsufficientFunds:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the message safe to show to a caller. Unclassified
// errors get a generic message so internals do not leak.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
