// Package apierror provides the engine's recoverable error taxonomy and the
// standardized error response structures for the API. All errors returned to
// clients go through this package to ensure consistency and to prevent
// leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a recoverable engine failure. None of these are transient:
// the engine never retries internally, callers decide the user-facing policy.
type Kind int

const (
	// KindConflict — state exclusivity violated: double-open, or an operation
	// that needs an open register when there is none.
	KindConflict Kind = iota + 1
	// KindNotFound — referenced register/entry/operator does not exist.
	KindNotFound
	// KindInvalidState — operation not legal for the entity's current status,
	// e.g. cancelling a withdrawal or amending an open register.
	KindInvalidState
	// KindValidation — malformed or out-of-range input.
	KindValidation
	// KindInsufficientFunds — withdrawal exceeds the current cash balance.
	KindInsufficientFunds
	// KindAlreadyProcessing — duplicate concurrent submission for the same
	// external reference.
	KindAlreadyProcessing
)

// Error carries a Kind, a client-safe detail message and an optional cause.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Detail + ": " + e.cause.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.cause }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(KindInvalidState, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func InsufficientFunds(format string, args ...interface{}) *Error {
	return newf(KindInsufficientFunds, format, args...)
}

func AlreadyProcessing(format string, args ...interface{}) *Error {
	return newf(KindAlreadyProcessing, format, args...)
}

// Wrap attaches a cause while keeping the client-safe detail.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	e := newf(kind, format, args...)
	e.cause = cause
	return e
}

// KindOf returns the Kind of err, or 0 when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Status maps an error to the HTTP status the handlers respond with.
// Unknown errors are internal — the envelope never exposes their text.
func Status(err error) int {
	switch KindOf(err) {
	case KindConflict, KindInvalidState, KindAlreadyProcessing:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}
