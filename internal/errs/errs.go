// Package errs defines the structured error taxonomy shared by the
// conversion and waterfall engines. Every engine failure is an input
// problem the caller can correct and retry with new input; none are
// retryable I/O errors.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error for callers that map failures onto
// a transport (HTTP status codes) or a UI error state.
type Kind string

const (
	// KindValidation marks malformed or out-of-range input.
	KindValidation Kind = "validation_error"

	// KindComputation marks failures arising during computation, such as
	// a conversion price resolving to zero or an empty stakeholder set.
	KindComputation Kind = "computation_error"

	// KindStateConflict marks operations that conflict with entity state,
	// such as converting an already-converted instrument.
	KindStateConflict Kind = "state_conflict_error"
)

// Error is a structured engine error with a kind and a message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validation builds a KindValidation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Computation builds a KindComputation error.
func Computation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindComputation, Message: fmt.Sprintf(format, args...)}
}

// StateConflict builds a KindStateConflict error.
func StateConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, unwrapping as needed.
// The second return is false when err carries no Kind.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
