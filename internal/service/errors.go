package service

import (
	"errors"
	"fmt"

	"example.com/roofops/services/portal/internal/repository"
)

// ErrorKind is a machine-readable failure classification surfaced to
// callers alongside a human-readable message. Stack detail never
// crosses the service boundary.
type ErrorKind string

const (
	// KindValidation means the input is malformed; never retried
	KindValidation ErrorKind = "VALIDATION_ERROR"
	// KindInvalidCredentials means authentication failed; never says which field was wrong
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	// KindExpired means the presented credential has expired
	KindExpired ErrorKind = "EXPIRED"
	// KindNotFound means a referenced entity is absent
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindPreconditionFailed means a state transition is not legal from the current state
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	// KindUnavailable means the backing store stayed unreachable after retries
	KindUnavailable ErrorKind = "UNAVAILABLE"
)

// Error is a classified service failure
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewValidationError creates a validation failure
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a not-found failure
func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewPreconditionError creates an illegal-transition failure
func NewPreconditionError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

// NewUnavailableError creates a store-unavailable failure
func NewUnavailableError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf(format, args...)}
}

// Fixed auth failures. The message deliberately does not distinguish
// a wrong identifier from a wrong secret.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrExpired            = &Error{Kind: KindExpired, Message: "credential expired"}
)

// KindOf extracts the classification from an error, defaulting to
// Unavailable for anything unclassified.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindUnavailable
}

// notFoundOr maps a repository not-found to a service NotFound and
// leaves other errors untouched.
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return NewNotFoundError(format, args...)
	}
	return err
}
