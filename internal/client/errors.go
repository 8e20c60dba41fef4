package client

import (
	"errors"
	"fmt"
)

// Error is a server-rejected request. Transport failures are reported with
// NetworkError set and no status code.
type Error struct {
	Code         int
	Message      string
	StatusCode   int
	NetworkError bool
	cause        error
}

func (e *Error) Error() string {
	if e.NetworkError {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("server error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewNetworkError wraps a transport failure as a recoverable error.
func NewNetworkError(err error) *Error {
	return &Error{NetworkError: true, Message: err.Error(), cause: err}
}

// NewServerError builds an error from a backend response.
func NewServerError(statusCode, code int, message string) *Error {
	return &Error{StatusCode: statusCode, Code: code, Message: message}
}

// IsRecoverable classifies a failure for the sync-status machine: transport
// failures and server-side (5xx) errors are safe to retry, everything else
// is permanent. Unrecognized error values are treated as transport-level
// failures and stay retryable.
func IsRecoverable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return true
	}
	if apiErr.NetworkError {
		return true
	}
	return apiErr.StatusCode >= 500
}
