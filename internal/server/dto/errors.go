// Package dto defines API request/response types and error handling.
//
// This package is the API contract layer:
//   - Request types with path/query/json struct tags for parameter binding
//   - Response types with string IDs and unix-second timestamps
//   - Structured error types with HTTP status codes and error codes
//
// It does not import the storage packages. Conversion between storage
// entities and dto types lives in the handlers package.
package dto

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is returned when a required field is missing.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeInvalidFormat is returned when a field has an invalid format.
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrorCodeNotFound is returned when a resource is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeConflict is returned when there is a resource conflict.
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodeInsufficientStock is returned when an order needs more stock
	// than is available.
	ErrorCodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"
	// ErrorCodeInvalidState is returned for an order transition that is not
	// allowed from the current status.
	ErrorCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeUnauthorized is returned when authentication is missing or invalid.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeForbidden is returned when a user has insufficient permissions.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodePayloadTooLarge is returned when the request body is too large.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrorCodeRateLimitExceeded is returned when a rate limit tier is exhausted.
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeQuotaExceeded is returned when a server quota is reached.
	ErrorCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// ErrorCodeInvalidProvider is returned when an OAuth provider is unknown.
	ErrorCodeInvalidProvider ErrorCode = "INVALID_PROVIDER"
	// ErrorCodeOAuthError is returned when an OAuth operation fails.
	ErrorCodeOAuthError ErrorCode = "OAUTH_ERROR"
)

// ErrorDetails defines the structured error information in a response.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeMissingField, "Missing required field: "+fieldName).
		WithDetail("field", fieldName)
}

// InvalidField creates a 400 Bad Request error for a malformed field.
func InvalidField(fieldName, reason string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidFormat, "Invalid "+fieldName+": "+reason).
		WithDetail("field", fieldName)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrorCodeConflict, message)
}

// Forbidden returns a 403 Forbidden error.
func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, ErrorCodeForbidden, message)
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrorCodeUnauthorized, "Unauthorized")
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// PayloadTooLarge creates a 413 error for a body over limit bytes.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "Request body exceeds "+strconv.FormatInt(limit, 10)+" bytes").
		WithDetail("limit", limit)
}

// RateLimitExceeded creates a 429 error.
func RateLimitExceeded(retryAfterSeconds int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimitExceeded, "Too many requests").
		WithDetail("retry_after", retryAfterSeconds)
}

// QuotaExceeded creates a 403 error for a server quota.
func QuotaExceeded(what string) *APIError {
	return NewAPIError(http.StatusForbidden, ErrorCodeQuotaExceeded, what)
}

// InvalidProvider creates a 404 error for unknown OAuth providers.
func InvalidProvider() *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeInvalidProvider, "unknown provider")
}

// OAuthError creates a 500 error for OAuth operation failures.
func OAuthError(operation string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeOAuthError, operation)
}
