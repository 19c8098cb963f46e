// Package apperr defines the error taxonomy shared by stores and handlers.
//
// Stores return sentinel errors built with New; handlers pass any error to
// the errors feature, which maps the Kind to an HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the API surface.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindAccessDenied
	KindNotFound
	KindConflict
)

// Status returns the HTTP status for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAccessDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable code written in JSON error bodies.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAuth:
		return "auth_error"
	case KindAccessDenied:
		return "access_denied"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "server_error"
	}
}

// Error is a classified error with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // per-field validation messages, optional
	Err     error             // underlying cause, never shown to clients outside dev
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by identity first, then by kind+message so a
// wrapped copy of a sentinel still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.Kind == t.Kind && e.Message == t.Message)
}

// New creates a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies err with a client-safe message.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Auth(msg string) *Error         { return New(KindAuth, msg) }
func AccessDenied(msg string) *Error { return New(KindAccessDenied, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

// ValidationFields creates a validation error carrying per-field messages.
func ValidationFields(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// As extracts the classified error from err's chain.
// Unclassified errors come back as KindInternal with ok=false.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}, false
}

// KindOf returns the classification of err (KindInternal when unclassified).
func KindOf(err error) Kind {
	e, _ := As(err)
	return e.Kind
}
