// Package errors provides structured error types for layerviz.
//
// Every rejected registry mutation, file import and surface request is
// reported as an *Error carrying a machine-readable Code. Surfaces decide how
// to present it: the CLI prints [UserMessage], the HTTP API maps the code to
// a status, the editor shows it in its status line. Nothing here talks to a
// user directly.
//
// # Error Codes
//
// Codes group into three families matching how they are recovered:
//   - validation of user numeric input (BELOW_MINIMUM, INVALID_LAYER, ...)
//   - file format problems on import (INVALID_FORMAT)
//   - capacity problems (CAPACITY_EXCEEDED, LAST_LAYER)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeCapacity, "total neurons %d exceeds limit %d", total, max)
//	if errors.Is(err, errors.ErrCodeCapacity) {
//	    // reject the mutation
//	}
//
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, jsonErr, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidLayer  Code = "INVALID_LAYER"
	ErrCodeInvalidIndex  Code = "INVALID_INDEX"
	ErrCodeBelowMinimum  Code = "BELOW_MINIMUM"

	// Capacity errors
	ErrCodeCapacity  Code = "CAPACITY_EXCEEDED"
	ErrCodeLastLayer Code = "LAST_LAYER"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
