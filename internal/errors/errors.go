package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a specific error type for better error handling
type ErrorCode string

const (
	// Engine errors
	ErrCodeInvalidConfig     ErrorCode = "INVALID_CONFIG"
	ErrCodePoolExhausted     ErrorCode = "POOL_EXHAUSTED"
	ErrCodeUnknownRequest    ErrorCode = "UNKNOWN_REQUEST"
	ErrCodeUnknownServer     ErrorCode = "UNKNOWN_SERVER"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// Request processing errors
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrInvalidConfig     = &LoadBalancerError{Code: ErrCodeInvalidConfig}
	ErrPoolExhausted     = &LoadBalancerError{Code: ErrCodePoolExhausted}
	ErrUnknownRequest    = &LoadBalancerError{Code: ErrCodeUnknownRequest}
	ErrUnknownServer     = &LoadBalancerError{Code: ErrCodeUnknownServer}
	ErrInvalidTransition = &LoadBalancerError{Code: ErrCodeInvalidTransition}
)

// LoadBalancerError represents a structured error with context
type LoadBalancerError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Component string                 `json:"component,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *LoadBalancerError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("[%s][%s] %s: %s", e.RequestID, e.Code, e.Component, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *LoadBalancerError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error code
func (e *LoadBalancerError) Is(target error) bool {
	if t, ok := target.(*LoadBalancerError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithMetadata adds metadata to the error
func (e *LoadBalancerError) WithMetadata(key string, value interface{}) *LoadBalancerError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithRequestID adds the HTTP request ID to the error
func (e *LoadBalancerError) WithRequestID(requestID string) *LoadBalancerError {
	e.RequestID = requestID
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *LoadBalancerError) HTTPStatusCode() int {
	switch e.Code {
	case ErrCodeInvalidConfig, ErrCodeInvalidRequest:
		return 400
	case ErrCodeAuthenticationFailed:
		return 401
	case ErrCodeUnknownRequest, ErrCodeUnknownServer:
		return 404
	case ErrCodeInvalidTransition:
		return 409
	case ErrCodeRateLimitExceeded:
		return 429
	case ErrCodePoolExhausted:
		return 503
	default:
		return 500
	}
}

// NewError creates a new LoadBalancerError
func NewError(code ErrorCode, component, message string) *LoadBalancerError {
	return &LoadBalancerError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WrapError wraps an existing error with LoadBalancerError structure
func WrapError(err error, code ErrorCode, component, message string) *LoadBalancerError {
	if err == nil {
		return nil
	}

	return &LoadBalancerError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
		Details:   err.Error(),
	}
}

// NewInvalidConfigError creates an error for rejected construction parameters
func NewInvalidConfigError(component, format string, args ...interface{}) *LoadBalancerError {
	return NewError(ErrCodeInvalidConfig, component, fmt.Sprintf(format, args...))
}

// NewPoolExhaustedError creates an error when no healthy server is available
func NewPoolExhaustedError() *LoadBalancerError {
	return NewError(
		ErrCodePoolExhausted,
		"selection",
		"No active servers available",
	)
}

// NewUnknownRequestError creates an error for a request id that is not live
func NewUnknownRequestError(requestID string) *LoadBalancerError {
	return NewError(
		ErrCodeUnknownRequest,
		"dispatcher",
		fmt.Sprintf("Request %s is not live", requestID),
	).WithMetadata("request_id", requestID)
}

// NewUnknownServerError creates an error for a server id outside the pool
func NewUnknownServerError(serverID int) *LoadBalancerError {
	return NewError(
		ErrCodeUnknownServer,
		"server_pool",
		fmt.Sprintf("Server %d does not exist", serverID),
	).WithMetadata("server_id", serverID)
}

// NewInvalidTransitionError creates an error for a command that does not
// apply to the request's current state
func NewInvalidTransitionError(requestID, action, status string) *LoadBalancerError {
	return NewError(
		ErrCodeInvalidTransition,
		"lifecycle",
		fmt.Sprintf("Cannot %s request %s in state %s", action, requestID, status),
	).WithMetadata("request_id", requestID).WithMetadata("status", status)
}

// NewRateLimitError creates an error for rate limiting
func NewRateLimitError(clientIP string, limit float64) *LoadBalancerError {
	return NewError(
		ErrCodeRateLimitExceeded,
		"rate_limiter",
		fmt.Sprintf("Rate limit exceeded for client %s (limit: %.2f/s)", clientIP, limit),
	).WithMetadata("client_ip", clientIP).WithMetadata("limit", limit)
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(reason string) *LoadBalancerError {
	return NewError(
		ErrCodeAuthenticationFailed,
		"auth",
		fmt.Sprintf("Authentication failed: %s", reason),
	).WithMetadata("reason", reason)
}

// IsLoadBalancerError checks if an error is a LoadBalancerError
func IsLoadBalancerError(err error) bool {
	var lbErr *LoadBalancerError
	return errors.As(err, &lbErr)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var lbErr *LoadBalancerError
	if errors.As(err, &lbErr) {
		return lbErr.Code
	}
	return ErrCodeInternalError
}

// GetHTTPStatusCode gets the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	var lbErr *LoadBalancerError
	if errors.As(err, &lbErr) {
		return lbErr.HTTPStatusCode()
	}
	return 500
}
