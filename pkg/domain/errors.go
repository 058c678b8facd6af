package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the category of an engine error.
type ErrorCode int

const (
	// ErrTypeMismatch indicates a numeric or array operator was applied to an
	// incompatible value.
	ErrTypeMismatch ErrorCode = iota + 1
	// ErrNotFound indicates an identity-keyed lookup matched no document, or
	// that a named collection does not exist.
	ErrNotFound
	// ErrValidation indicates a structurally malformed filter, update spec,
	// pipeline or option set.
	ErrValidation
	// ErrDuplicateKey indicates an insert reused an existing identity value.
	ErrDuplicateKey
)

func (c ErrorCode) String() string {
	switch c {
	case ErrTypeMismatch:
		return "TypeError"
	case ErrNotFound:
		return "NotFoundError"
	case ErrValidation:
		return "ValidationError"
	case ErrDuplicateKey:
		return "DuplicateKeyError"
	default:
		return "Error"
	}
}

// Error is the structured error type returned by engine operations.
// Use Code (or the IsXxx helpers) to distinguish error categories.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, supporting errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// TypeError builds an ErrTypeMismatch error.
func TypeError(format string, args ...interface{}) *Error {
	return &Error{Code: ErrTypeMismatch, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation builds an ErrValidation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationCause builds an ErrValidation error wrapping cause.
func ValidationCause(cause error, format string, args ...interface{}) *Error {
	return &Error{Code: ErrValidation, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// DuplicateKey builds an ErrDuplicateKey error.
func DuplicateKey(format string, args ...interface{}) *Error {
	return &Error{Code: ErrDuplicateKey, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsTypeError reports whether err is a TypeError.
func IsTypeError(err error) bool {
	return CodeOf(err) == ErrTypeMismatch
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrNotFound
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrValidation
}

// IsDuplicateKey reports whether err is a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	return CodeOf(err) == ErrDuplicateKey
}
