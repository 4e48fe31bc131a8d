// Package errors provides structured error types for rrthin.
//
// Every failure that can abort a thinning job carries a machine-readable
// [Code], so the batch orchestrator can report the category of a failure
// next to the circuit and rate it belongs to, and tests can assert on the
// category without matching message text.
//
// # Error Codes
//
//   - MISSING_INPUT_FILE: a source graph (or companion file) does not exist
//   - MALFORMED_GRAPH: a required section or attribute is absent or invalid
//   - DANGLING_REFERENCE: an edge names a node id missing from the node table
//   - UNSUPPORTED_SEGMENT_CLASS: a channel node has a segment id outside {0,1}
//   - INVALID_*: bad rates, circuit names or configuration
//
// None of these are retryable: they indicate missing upstream artifacts or
// corrupt input.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedGraph, "missing <%s> section", "rr_edges")
//	if errors.Is(err, errors.ErrCodeMalformedGraph) {
//	    // Handle corrupt input
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMissingInput, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input graph errors
	ErrCodeMissingInput       Code = "MISSING_INPUT_FILE"
	ErrCodeMalformedGraph     Code = "MALFORMED_GRAPH"
	ErrCodeDanglingReference  Code = "DANGLING_REFERENCE"
	ErrCodeUnsupportedSegment Code = "UNSUPPORTED_SEGMENT_CLASS"
	ErrCodeSourceChanged      Code = "SOURCE_CHANGED"

	// Validation errors
	ErrCodeInvalidRate    Code = "INVALID_RATE"
	ErrCodeInvalidCircuit Code = "INVALID_CIRCUIT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// It unwraps the error chain looking for an *Error with a matching code,
// so a MALFORMED_GRAPH wrapped by fmt.Errorf("load: %w") still matches.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the chain holds no *Error.
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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}
