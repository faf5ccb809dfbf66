package apperrors

import (
	"errors"
	"fmt"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// Error carries a kind plus a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

func Validation(format string, args ...any) error   { return newError(ErrValidation, format, args...) }
func NotFound(format string, args ...any) error     { return newError(ErrNotFound, format, args...) }
func Unauthorized(format string, args ...any) error { return newError(ErrUnauthorized, format, args...) }
func Forbidden(format string, args ...any) error    { return newError(ErrForbidden, format, args...) }
func Conflict(format string, args ...any) error     { return newError(ErrConflict, format, args...) }

// Wrap attaches a kind and public message to an underlying cause.
func Wrap(kind error, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Message returns the caller-facing message of err, or "" if err is not an *Error.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
