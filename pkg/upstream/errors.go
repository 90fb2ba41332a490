package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the upstream service.
type APIError struct {
	// Endpoint names the operation (e.g. "profiles").
	Endpoint string

	// StatusCode is the HTTP status returned.
	StatusCode int

	// Message is the trimmed response body.
	Message string

	// RequestID is the X-Request-ID sent with the request.
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream %s: status %d (request %s)", e.Endpoint, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("upstream %s: status %d: %s (request %s)", e.Endpoint, e.StatusCode, e.Message, e.RequestID)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is an upstream 401 or 403.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}
