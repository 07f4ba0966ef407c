package provider

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common provider failures.
var (
	// Context/Token errors
	ErrContextLengthExceeded = errors.New("context length exceeded")

	// Safety/Content errors
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// Rate limiting errors
	ErrRateLimit = errors.New("rate limit exceeded")

	// Authentication errors
	ErrAuthentication = errors.New("authentication failed")

	// Network errors
	ErrNetwork            = errors.New("network error")
	ErrTimeout            = errors.New("request timeout")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Request errors
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidResponse = errors.New("invalid response")
)

// ErrorCode represents a provider error code.
type ErrorCode string

const (
	ErrorCodeContextLength   ErrorCode = "context_length_exceeded"
	ErrorCodeContentBlocked  ErrorCode = "content_blocked"
	ErrorCodeRateLimit       ErrorCode = "rate_limit"
	ErrorCodeAuth            ErrorCode = "authentication_failed"
	ErrorCodeNetwork         ErrorCode = "network_error"
	ErrorCodeTimeout         ErrorCode = "timeout"
	ErrorCodeUnavailable     ErrorCode = "service_unavailable"
	ErrorCodeInvalidRequest  ErrorCode = "invalid_request"
	ErrorCodeInvalidResponse ErrorCode = "invalid_response"
)

var sentinelByCode = map[ErrorCode]error{
	ErrorCodeContextLength:   ErrContextLengthExceeded,
	ErrorCodeContentBlocked:  ErrContentBlocked,
	ErrorCodeRateLimit:       ErrRateLimit,
	ErrorCodeAuth:            ErrAuthentication,
	ErrorCodeNetwork:         ErrNetwork,
	ErrorCodeTimeout:         ErrTimeout,
	ErrorCodeUnavailable:     ErrServiceUnavailable,
	ErrorCodeInvalidRequest:  ErrInvalidRequest,
	ErrorCodeInvalidResponse: ErrInvalidResponse,
}

// ProviderError wraps errors with additional context.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Underlying error
	Retryable  bool
	RetryAfter *time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is the sentinel for this error's code,
// so callers can write errors.Is(err, provider.ErrAuthentication).
func (e *ProviderError) Is(target error) bool {
	sentinel, ok := sentinelByCode[e.Code]
	return ok && sentinel == target
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}

// IsAuth returns true for credential failures, which are never retried.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// GetRetryAfter returns the retry-after duration if present.
func GetRetryAfter(err error) *time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.RetryAfter
	}
	return nil
}

// FromStatus maps an HTTP status code to a ProviderError.
func FromStatus(status int, message string, retryAfter *time.Duration) *ProviderError {
	e := &ProviderError{StatusCode: status, Message: message}
	switch {
	case status == 401 || status == 403:
		e.Code = ErrorCodeAuth
	case status == 429:
		e.Code = ErrorCodeRateLimit
		e.Retryable = true
		e.RetryAfter = retryAfter
	case status == 408:
		e.Code = ErrorCodeTimeout
		e.Retryable = true
	case status == 413:
		e.Code = ErrorCodeContextLength
	case status >= 500:
		e.Code = ErrorCodeUnavailable
		e.Retryable = true
	default:
		e.Code = ErrorCodeInvalidRequest
	}
	return e
}
