package remote

import (
	"errors"
	"fmt"
	"time"
)

// ErrorClass represents the classification of a remote API error for retry
// and recovery logic.
type ErrorClass string

const (
	// ErrorClassTransient indicates a temporary failure that may succeed on
	// retry. Examples: network timeouts, 5xx responses.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassRateLimited indicates the platform's rate limit was hit.
	// Retried after the wait duration the platform supplies.
	ErrorClassRateLimited ErrorClass = "rate_limited"

	// ErrorClassPermanent indicates a non-recoverable error.
	// Examples: invalid payload, permission denied, conflicting name.
	ErrorClassPermanent ErrorClass = "permanent"
)

// Error represents a classified remote API error with context.
type Error struct {
	// Class is the error classification for retry logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Operation is the remote operation being performed.
	Operation string `json:"operation,omitempty"`

	// Resource is the resource name or ID that caused the error.
	Resource string `json:"resource,omitempty"`

	// RetryAfter is the wait the platform requested, for rate-limit errors.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" && e.Resource != "" {
		return fmt.Sprintf("[%s] %s (operation=%s, resource=%s)%s",
			e.Class, e.Message, e.Operation, e.Resource, e.unwrapSuffix())
	}
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation=%s)%s", e.Class, e.Message, e.Operation, e.unwrapSuffix())
	}
	return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewTransientError creates a new transient error.
func NewTransientError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassTransient,
		Message: message,
		Err:     err,
	}
}

// NewRateLimitError creates a new rate-limit error carrying the wait the
// platform requested.
func NewRateLimitError(message string, retryAfter time.Duration) *Error {
	return &Error{
		Class:      ErrorClassRateLimited,
		Message:    message,
		Code:       ErrCodeRateLimited,
		RetryAfter: retryAfter,
	}
}

// NewPermanentError creates a new permanent error.
func NewPermanentError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassPermanent,
		Message: message,
		Err:     err,
	}
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithResource adds resource context to an error.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// IsTransient returns true if the error is classified as transient.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassTransient
	}
	return false
}

// IsRateLimited returns true if the error is a rate-limit signal.
func IsRateLimited(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassRateLimited
	}
	return false
}

// IsPermanent returns true if the error is classified as permanent.
func IsPermanent(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassPermanent
	}
	return false
}

// IsRetryable returns true if the error can be retried.
// Transient and rate-limited errors are retryable.
func IsRetryable(err error) bool {
	return IsTransient(err) || IsRateLimited(err)
}

// RetryAfter extracts the platform-requested wait from a rate-limit error.
// Returns zero for any other error.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.Class == ErrorClassRateLimited {
		return e.RetryAfter
	}
	return 0
}

// Common error codes.
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInternal         = "INTERNAL_ERROR"
)
