// Package errors provides structured error types for coursier.
//
// Every failure in the resolution pipeline carries a machine-readable
// [Code]: resource lookups (NOT_FOUND, NOT_IN_CACHE), transport and
// verification failures (TRANSPORT_ERROR, CHECKSUM_MISMATCH,
// UNAUTHORIZED), descriptor problems (PARSE_ERROR, PROPERTY_CYCLE,
// PARENT_CYCLE), and resolver safety trips (MAX_ITERATIONS,
// VERSION_CONFLICT).
//
// The codes split into two severities. Most failures are scoped to one
// coordinate: the resolver records them and keeps expanding the rest of
// the graph. The safety trips and strict-mode conflicts are fatal — the
// resolution as a whole cannot produce a meaningful graph past them.
// [Fatal] distinguishes the two, and fatal errors render with a
// "(fatal)" marker so aggregated error lists read correctly.
//
//	err := errors.New(errors.ErrCodeNotFound, "descriptor %s absent on all repositories", coord)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // record and continue with the next coordinate
//	}
//	if errors.Fatal(err) {
//	    // abort the resolution
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// Resource lookup errors
	ErrCodeNotFound   Code = "NOT_FOUND"
	ErrCodeNotInCache Code = "NOT_IN_CACHE"

	// Transport and verification errors
	ErrCodeTransport        Code = "TRANSPORT_ERROR"
	ErrCodeChecksumMismatch Code = "CHECKSUM_MISMATCH"
	ErrCodeUnauthorized     Code = "UNAUTHORIZED"

	// Descriptor errors
	ErrCodeParse         Code = "PARSE_ERROR"
	ErrCodePropertyCycle Code = "PROPERTY_CYCLE"
	ErrCodeParentCycle   Code = "PARENT_CYCLE"

	// Resolver safety trips
	ErrCodeMaxIterations   Code = "MAX_ITERATIONS"
	ErrCodeVersionConflict Code = "VERSION_CONFLICT"

	// Cooperative cancellation
	ErrCodeCancelled Code = "CANCELLED"
)

// fatalCodes abort an entire resolution rather than a single
// coordinate: the cycle detectors, the iteration guard, and strict-mode
// version conflicts.
var fatalCodes = map[Code]bool{
	ErrCodeMaxIterations:   true,
	ErrCodeParentCycle:     true,
	ErrCodePropertyCycle:   true,
	ErrCodeVersionConflict: true,
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error renders "CODE: message[: cause]". Fatal codes carry a "(fatal)"
// marker after the code, since they usually surface inside aggregated
// per-coordinate error lists where the distinction matters.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if fatalCodes[e.Code] {
		b.WriteString(" (fatal)")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error { return e.Cause }

// Fatal reports whether this error must abort the whole resolution.
func (e *Error) Fatal() bool { return fatalCodes[e.Code] }

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	err := New(code, format, args...)
	err.Cause = cause
	return err
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
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

// Fatal reports whether err must abort an entire resolution rather than
// a single coordinate.
func Fatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Fatal()
}
