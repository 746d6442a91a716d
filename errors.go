package cms

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange     = errors.New("value out of range")
	ErrClosed         = errors.New("object has been closed")
	ErrInvalidProfile = errors.New("invalid profile data")
	ErrMissingTag     = errors.New("profile tag not present")
)

// Error is the failure type returned by every operation in this package.
// It carries a message and optionally the error that caused it.
type Error struct {
	msg string
	err error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

func NewError(msg string, cause error) *Error { return &Error{msg: msg, err: cause} }

func errorf(cause error, format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...), err: cause}
}

// SaveError is returned when a profile cannot be serialized
type SaveError struct {
	Err *Error
}

func (e *SaveError) Error() string { return e.Err.Error() }
func (e *SaveError) Unwrap() error { return e.Err }

func NewSaveError(msg string, cause error) *SaveError {
	return &SaveError{Err: NewError(msg, cause)}
}
