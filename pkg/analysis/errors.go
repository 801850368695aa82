package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAnalysisUnavailable marks a provider failure that exhausted retries.
// Callers must treat a matching error as retryable later, never as a
// permanent data error.
var ErrAnalysisUnavailable = errors.New("analysis unavailable")

// ErrMalformedResponse marks a provider response from which no JSON object
// could be located at all. Retrying an identical prompt tends to reproduce
// the same shape, so the gateway does not retry these.
var ErrMalformedResponse = errors.New("malformed provider response")

// ErrorType classifies a provider error.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a structured provider error with classification.
type Error struct {
	Type       ErrorType // Classification of the error
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation can be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
	Model      string    // Model name if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
// This allows the retry package to check retryability without importing analysis.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured provider error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError categorizes an error and returns a structured Error.
// This consolidates error classification for both provider SDKs so retry
// decisions are consistent regardless of vendor.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	// Check if already an *Error
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	// Extract HTTP status code from error string
	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	// Authentication errors (not retryable)
	if strings.Contains(errStr, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") {
		provErr = NewError(ErrorTypeAuth, "authentication failed", false, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// Model not found (not retryable without config change)
	if strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")) {
		provErr = NewError(ErrorTypeModel, "model not found", false, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// Malformed request (not retryable; the prompt itself is the problem)
	if strings.Contains(errStr, "400") || strings.Contains(lower, "invalid request") {
		provErr = NewError(ErrorTypeUnknown, "malformed request", false, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// Endpoint not found (not retryable without config change)
	if strings.Contains(errStr, "404") {
		provErr = NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// Connection errors (may be retryable)
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset") {
		provErr = NewError(ErrorTypeEndpoint, "connection failed", true, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// Timeout and deadline exceeded (retryable)
	if strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded") {
		provErr = NewError(ErrorTypeEndpoint, "request timeout", true, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// Rate limiting (retryable after backoff)
	if strings.Contains(errStr, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "overloaded") {
		provErr = NewError(ErrorTypeRateLimit, "rate limited", true, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// 5xx server errors (retryable)
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") {
		provErr = NewError(ErrorTypeEndpoint, "server error", true, err)
		provErr.StatusCode = statusCode
		return provErr
	}

	// Unknown error
	provErr = NewError(ErrorTypeUnknown, "provider error", false, err)
	provErr.StatusCode = statusCode
	return provErr
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// unavailable wraps a final provider error in the retryable-later condition.
func unavailable(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrAnalysisUnavailable, op, cause)
}
