package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEmptyBatch is returned when a confirmation carries no rows
var ErrEmptyBatch = errors.New("no records selected")

// TimeoutError means the call did not finish within the client timeout
type TimeoutError struct {
	Action  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out (%s)", e.Timeout)
}

// ConnectionError covers an unreachable backend and unreadable responses
type ConnectionError struct {
	Action string
	Err    error
}

func (e *ConnectionError) Error() string {
	return "could not connect to the server, check your connection"
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// BusinessError is a rejection reported by the backend; Message is shown verbatim
type BusinessError struct {
	Action  string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// BackendError is a non-2xx HTTP status
type BackendError struct {
	Message    string
	StatusCode int
}

func (e *BackendError) Error() string {
	return e.Message
}

// UserMessage returns the text to show for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var timeoutErr *TimeoutError
	var connErr *ConnectionError
	var businessErr *BusinessError
	var backendErr *BackendError

	switch {
	case errors.As(err, &timeoutErr):
		return timeoutErr.Error()
	case errors.As(err, &connErr):
		return connErr.Error()
	case errors.As(err, &businessErr):
		return businessErr.Message
	case errors.As(err, &backendErr):
		return fmt.Sprintf("server error (HTTP %d)", backendErr.StatusCode)
	default:
		return err.Error()
	}
}

// Retryable reports whether trying the same call again by hand may succeed.
// Business rejections will not change on retry.
func Retryable(err error) bool {
	var timeoutErr *TimeoutError
	var connErr *ConnectionError
	var backendErr *BackendError

	switch {
	case errors.As(err, &timeoutErr), errors.As(err, &connErr):
		return true
	case errors.As(err, &backendErr):
		return backendErr.StatusCode >= http.StatusInternalServerError ||
			backendErr.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}
