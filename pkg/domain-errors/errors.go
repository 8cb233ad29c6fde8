// Package domainerrors provides coded errors for the domain and service layers.
//
// Services create these at the point where a precondition fails so that
// transports can map codes to protocol responses without string matching.
// Stores do NOT use this package; they return pkg/platform/sentinel errors
// which services translate into coded errors.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and caller branching.
type Code string

const (
	// CodeValidation marks rejected input (bad field, length overflow).
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed identifiers or unparseable values.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks requests that cannot be decoded at all.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks missing or failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks operations the caller may not perform, including
	// domain preconditions that depend on state or time rather than input.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks references to records that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks uniqueness violations (duplicate submission,
	// duplicate ballot, repeated assessment).
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks constructor/aggregate invariant failures.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable marks a dependency that is temporarily down.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks unexpected failures the caller cannot correct.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Instances created once as package vars act
// as sentinels: errors.Is matches them by identity through wrap chains.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code and message. The cause stays
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// Is is a readable alias for HasCode at call sites.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
