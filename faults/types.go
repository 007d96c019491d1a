package faults

import (
	"errors"
	"time"
)

type ErrorCategory string

const (
	InvalidRequestError ErrorCategory = "InvalidRequestError"
	AuthenticationError ErrorCategory = "AuthenticationError"
	RetryAfterError     ErrorCategory = "RetryAfterError"
	ServerError         ErrorCategory = "ServerError"
	ValidationError     ErrorCategory = "ValidationError"
	MissingIDError      ErrorCategory = "MissingIDError"
	TransportError      ErrorCategory = "TransportError"
	InternalError       ErrorCategory = "InternalError"
)

// TypedError is the single error type surfaced by the library. Errors built
// from an HTTP response also carry the raw body, the status code and the
// best-effort decoded JSON payload.
type TypedError struct {
	Category ErrorCategory
	Message  string
	Cause    error

	Status     int
	Body       string
	Payload    any
	RetryAfter time.Duration
}

func (e *TypedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" && e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Category)
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewTypedError(category ErrorCategory, message string, cause error) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

// NewResponseError builds a typed error describing a failed HTTP exchange.
func NewResponseError(category ErrorCategory, message string, status int, body string, payload any) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Status:   status,
		Body:     body,
		Payload:  payload,
	}
}

func NewMissingIDError(message string) *TypedError {
	if message == "" {
		message = "object needs an id to complete this operation"
	}
	return NewTypedError(MissingIDError, message, nil)
}

func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return false
	}
	return typedErr.Category == category
}

// As returns the first TypedError in err's chain.
func As(err error) (*TypedError, bool) {
	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return nil, false
	}
	return typedErr, true
}
