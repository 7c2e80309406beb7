package provider

import (
	"errors"
	"fmt"
)

// ErrorCode classifies every failure this system can surface. Callers branch
// on the code, never on message text.
type ErrorCode string

const (
	// ErrValidationRejected marks malformed input. Caller's fault, not retried.
	ErrValidationRejected ErrorCode = "validation_rejected"

	// ErrNotFound marks an unknown identifier.
	ErrNotFound ErrorCode = "not_found"

	// ErrInvalidStateTransition marks an operation that is not legal in the
	// record's current state.
	ErrInvalidStateTransition ErrorCode = "invalid_state_transition"

	// ErrSignatureInvalid marks a webhook whose signature did not verify.
	ErrSignatureInvalid ErrorCode = "signature_invalid"

	// ErrTimestampExpired marks a webhook outside the replay tolerance.
	ErrTimestampExpired ErrorCode = "timestamp_expired"

	// ErrProcessorRejected marks a request the processor declined, e.g. a
	// card decline. The processor's reason code travels with the error.
	ErrProcessorRejected ErrorCode = "processor_rejected"

	// ErrProcessorUnavailable marks transient network or timeout failures.
	// Safe for the caller to retry; never retried internally.
	ErrProcessorUnavailable ErrorCode = "processor_unavailable"
)

// Error is the classified failure type returned across component boundaries.
type Error struct {
	Code    ErrorCode
	Message string
	Reason  string // processor reason code, when one exists
	Err     error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf builds a classified error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithReason attaches a processor reason code.
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// CodeOf extracts the classification of err. Unclassified errors report
// ErrProcessorUnavailable: uncertainty about the processor is treated as a
// transient condition, never silently coerced into success or rejection.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrProcessorUnavailable
}

// IsCode reports whether err carries the given classification.
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
