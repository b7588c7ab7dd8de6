// Package errors provides the structured error taxonomy used across planmap.
//
// Every failure a caller needs to act on carries a machine-readable [Code]:
//   - INVALID_INPUT: missing or malformed user input (a validation error).
//     The action is blocked locally and no request is issued.
//   - NETWORK_ERROR: a request failed or returned a non-success status.
//   - LAYOUT_ERROR: the graph handed to the layout adapter is malformed,
//     for example an edge names a node that does not exist.
//
// NOT_FOUND and CONFLICT are used by the stores and the reference server.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "role must not be empty")
//	if errors.IsValidation(err) {
//	    // show the message, keep the editor open
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "patch diagram %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeLayout       Code = "LAYOUT_ERROR"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeConflict     Code = "CONFLICT"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
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

// Validation is shorthand for New(ErrCodeInvalidInput, ...).
func Validation(format string, args ...any) *Error {
	return New(ErrCodeInvalidInput, format, args...)
}

// Layout is shorthand for New(ErrCodeLayout, ...).
func Layout(format string, args ...any) *Error {
	return New(ErrCodeLayout, format, args...)
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

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return Is(err, ErrCodeInvalidInput) }

// IsNetwork reports whether err is a network error.
func IsNetwork(err error) bool { return Is(err, ErrCodeNetwork) }

// IsLayout reports whether err is a layout error.
func IsLayout(err error) bool { return Is(err, ErrCodeLayout) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Is(err, ErrCodeNotFound) }

// IsConflict reports whether err is a revision conflict.
func IsConflict(err error) bool { return Is(err, ErrCodeConflict) }

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
		if e.Cause != nil && e.Code == ErrCodeNetwork {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
