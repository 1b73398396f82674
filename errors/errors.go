package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is a wrapper around errno codes, with a customizable error
// message. Two DriverErrors match under [errors.Is] when their codes are equal,
// so callers can test for an error kind regardless of the message attached to
// it.
type DriverError interface {
	error
	Errno() Errno
	Unwrap() error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type driverError struct {
	errno         Errno
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e driverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return StrError(e.errno)
}

func (e driverError) Errno() Errno {
	return e.errno
}

func (e driverError) Unwrap() error {
	return e.originalError
}

// Is reports whether `target` is a DriverError with the same errno code.
func (e driverError) Is(target error) bool {
	var other DriverError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Errno() == e.errno
}

// WithMessage returns a copy of the error with `message` appended to the
// existing message.
func (e driverError) WithMessage(message string) DriverError {
	return driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e.originalError,
	}
}

// Wrap returns a copy of the error that also matches `err` under [errors.Is].
func (e driverError) Wrap(err error) DriverError {
	return driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e.originalError, err),
	}
}

// New creates a new [DriverError] with a default message derived from the
// error code.
func New(errnoCode Errno) DriverError {
	return driverError{
		errno:   errnoCode,
		message: StrError(errnoCode),
	}
}

func NewFromError(errnoCode Errno, originalError error) DriverError {
	return driverError{
		errno:         errnoCode,
		message:       fmt.Sprintf("%s: %s", StrError(errnoCode), originalError.Error()),
		originalError: originalError,
	}
}

// NewWithMessage creates a new DriverError from an error code with a custom
// message.
func NewWithMessage(errnoCode Errno, message string) DriverError {
	return driverError{
		errno:   errnoCode,
		message: fmt.Sprintf("%s: %s", StrError(errnoCode), message),
	}
}

// Errorf is shorthand for NewWithMessage(code, fmt.Sprintf(format, args...)).
func Errorf(errnoCode Errno, format string, args ...any) DriverError {
	return NewWithMessage(errnoCode, fmt.Sprintf(format, args...))
}

// ErrnoOf extracts the errno code from `err`. Errors that aren't DriverErrors
// are reported as EIO; nil is EOK.
func ErrnoOf(err error) Errno {
	if err == nil {
		return EOK
	}
	var driverErr DriverError
	if stderrors.As(err, &driverErr) {
		return driverErr.Errno()
	}
	return EIO
}

// IsExhausted reports whether `err` means some fixed-size table or pool ran out
// of free slots.
func IsExhausted(err error) bool {
	return stderrors.Is(err, ErrNoSpaceOnDevice) || stderrors.Is(err, ErrTooManyOpenFiles)
}
