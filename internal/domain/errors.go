package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the fetch error taxonomy. Typed errors below unwrap
// to these so callers can classify with errors.Is.
var (
	// ErrNotFound indicates the remote reports no such record.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the remote explicitly signalled throttling.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuth indicates the remote rejected the supplied credentials.
	ErrAuth = errors.New("authentication rejected")

	// ErrTransient indicates a connection-level or timeout failure that is
	// safe to retry.
	ErrTransient = errors.New("transient network error")

	// ErrParse indicates the response could not be decoded into the
	// expected schema.
	ErrParse = errors.New("parse error")

	// ErrInvalidInput indicates the request specification is malformed or
	// names an operation the source does not support.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFatal indicates an unrecoverable failure that fits no other kind.
	ErrFatal = errors.New("fatal error")
)

// IsRetryable reports whether err may be recovered by retrying the call.
// Only rate-limit and transient network failures qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// NotFoundError provides details about a missing record.
type NotFoundError struct {
	Source SourceType
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: record not found: %s", e.Source, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError provides details about a rate limit response.
// RetryAfter is zero when the remote did not supply a wait duration.
type RateLimitError struct {
	Source     SourceType
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Source, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Source)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// AuthError provides details about rejected credentials. The message never
// includes the credential value itself.
type AuthError struct {
	Source  SourceType
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication rejected: %s", e.Source, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AuthError) Unwrap() error {
	return ErrAuth
}

// TransientError wraps a connection-level failure.
type TransientError struct {
	Source SourceType
	Cause  error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient network error: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *TransientError) Unwrap() error {
	return ErrTransient
}

// ParseError wraps a response decoding failure.
type ParseError struct {
	Source SourceType
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parsing response: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// FatalError wraps an unrecoverable failure with its cause.
type FatalError struct {
	Source SourceType
	Cause  error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *FatalError) Unwrap() error {
	return ErrFatal
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(source SourceType, id string) *NotFoundError {
	return &NotFoundError{Source: source, ID: id}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source SourceType, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

// NewAuthError creates a new AuthError.
func NewAuthError(source SourceType, message string) *AuthError {
	return &AuthError{Source: source, Message: message}
}

// NewTransientError creates a new TransientError.
func NewTransientError(source SourceType, cause error) *TransientError {
	return &TransientError{Source: source, Cause: cause}
}

// NewParseError creates a new ParseError.
func NewParseError(source SourceType, cause error) *ParseError {
	return &ParseError{Source: source, Cause: cause}
}

// NewFatalError creates a new FatalError.
func NewFatalError(source SourceType, cause error) *FatalError {
	return &FatalError{Source: source, Cause: cause}
}

// ErrorKind returns the taxonomy name for err, for metrics labels and API
// responses. Unknown errors report as "fatal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "fatal"
	}
}
