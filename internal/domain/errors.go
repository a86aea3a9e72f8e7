package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrForbidden            = errors.New("forbidden")
	ErrOperationFailed      = errors.New("operation failed")
	ErrInvalidInput         = errors.New("invalid input")
)

// Error is a failure with a caller-facing message. Kind is one of the sentinels
// above and is what errors.Is matches; Err keeps the underlying cause for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func InvalidInput(msg string) error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

// OperationFailed reports a store that could not complete or commit a unit of work.
func OperationFailed(msg string, cause error) error {
	return &Error{Kind: ErrOperationFailed, Message: msg, Err: cause}
}

// Message returns the caller-facing text of err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return ErrOperationFailed.Error()
}

// Cause returns the underlying error recorded on a domain error, if any.
func Cause(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de.Err
	}
	return err
}
