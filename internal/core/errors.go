package core

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeConfiguration indicates the service is missing required configuration (500)
	ErrorTypeConfiguration ErrorType = "configuration_error"
	// ErrorTypeInvalidRequest indicates a malformed client request (422)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeProvider indicates an upstream failure (502)
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeRateLimit indicates the upstream rate limited us (429)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
)

// GatewayError is the error type returned by every layer that can fail a request.
// The HTTP layer maps it to a status code and a flat JSON body.
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// UpstreamStatus is the status code the provider answered with, if any.
	UpstreamStatus int `json:"-"`
	// Raw is the upstream error body when it was valid JSON.
	Raw json.RawMessage `json:"-"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *GatewayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeConfiguration:
		return http.StatusInternalServerError
	case ErrorTypeInvalidRequest:
		return http.StatusUnprocessableEntity
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to the flat body returned to clients:
// {"error": message} plus "raw" when an upstream body is attached.
func (e *GatewayError) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"error": e.Message,
	}
	if len(e.Raw) > 0 {
		body["raw"] = e.Raw
	}
	return body
}

// NewConfigurationError creates a new configuration error (500)
func NewConfigurationError(message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewInvalidRequestError creates a new invalid request error (422)
func NewInvalidRequestError(message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

// NewProviderError creates a new upstream error (502)
func NewProviderError(provider string, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Provider:   provider,
		Err:        err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Provider:   provider,
	}
}

// ParseProviderError converts a non-2xx upstream response into a GatewayError.
// Upstream authentication and client errors are reported as 502: the caller
// did nothing wrong, the relay's own credential or payload was rejected.
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *GatewayError {
	var errorResponse struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := fmt.Sprintf("upstream returned status %d", statusCode)
	if err := json.Unmarshal(body, &errorResponse); err == nil && errorResponse.Error.Message != "" {
		message = errorResponse.Error.Message
	}

	var gwErr *GatewayError
	if statusCode == http.StatusTooManyRequests {
		gwErr = NewRateLimitError(provider, message)
		gwErr.Err = originalErr
	} else {
		gwErr = NewProviderError(provider, message, originalErr)
	}
	gwErr.UpstreamStatus = statusCode
	if json.Valid(body) {
		gwErr.Raw = json.RawMessage(body)
	}
	return gwErr
}
