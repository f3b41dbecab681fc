package models

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents input validation rejections (400)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeRateLimit represents session rate-limit denials (429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeQueryCap represents the service-wide daily query cap (503)
	ErrorTypeQueryCap ErrorType = "query_cap"
	// ErrorTypeBudget represents the monthly budget hard stop (503)
	ErrorTypeBudget ErrorType = "budget"
	// ErrorTypeProvider represents upstream Gemini failures (502)
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeTimeout represents upstream timeouts (504)
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypePersistence represents ledger/log write failures; these are
	// swallowed on the chat path and only ever surface in operator tooling
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeInternal represents internal server errors (500)
	ErrorTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitzero"`
	StatusCode int       `json:"-"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for the error
func (e *AppError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeQueryCap, ErrorTypeBudget:
		return http.StatusServiceUnavailable
	case ErrorTypeProvider:
		return http.StatusBadGateway
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error carrying the user-facing
// rejection message from the input validator.
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
	}
}

// NewRateLimitError creates a rate limit error carrying the denial message.
func NewRateLimitError(message string, limitType LimitType) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		Code:       fmt.Sprintf("RATE_LIMIT_%s", limitType),
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

// NewQueryCapError creates the fixed operator message for the service-wide
// daily query cap.
func NewQueryCapError() *AppError {
	return &AppError{
		Type:       ErrorTypeQueryCap,
		Message:    "The assistant has reached its daily query limit. Please come back tomorrow.",
		Code:       "DAILY_QUERY_CAP",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
}

// NewBudgetExceededError creates the fixed operator message for the monthly
// budget hard stop.
func NewBudgetExceededError() *AppError {
	return &AppError{
		Type:       ErrorTypeBudget,
		Message:    "The assistant is paused for the rest of the month. Please check back later.",
		Code:       "MONTHLY_BUDGET_EXCEEDED",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
}

// NewProviderError creates an upstream provider error
func NewProviderError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProvider,
		Message:    message,
		Code:       "PROVIDER_ERROR",
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    fmt.Sprintf("operation %s timed out", operation),
		StatusCode: http.StatusGatewayTimeout,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		Cause:      cause,
	}
}

// SanitizeError sanitizes an error for external consumption
func SanitizeError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		// Return a copy without internal details
		return &AppError{
			Type:       appErr.Type,
			Message:    appErr.Message,
			Code:       appErr.Code,
			StatusCode: appErr.GetStatusCode(),
			Retryable:  appErr.Retryable,
		}
	}

	return NewInternalError("an unexpected error occurred", err)
}
