// Package common holds the API-wide plumbing every feature package shares:
// the canonical error type, the response envelope, and the idempotency
// middleware for order mutations.
package common

import "errors"

// AppError is the API's canonical failure: a stable machine code clients can
// branch on, a human message, and the HTTP status the handler should write.
// Services return it wrapping the underlying cause; handlers render it.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is/As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError. err may be nil when the failure is a
// pure validation verdict with no underlying cause.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError reports whether an AppError sits anywhere in the chain.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
