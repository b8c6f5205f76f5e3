package domain

import "fmt"

// APIError is the typed error for non-2xx backend responses. Callers branch
// on Status rather than matching error strings.
type APIError struct {
	Status     int
	StatusText string
	Detail     string
}

// NewAPIError builds an APIError from the response status line and a
// best-effort human-readable detail.
func NewAPIError(status int, statusText, detail string) *APIError {
	return &APIError{Status: status, StatusText: statusText, Detail: detail}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.StatusText, e.Detail)
}

// IsNotFound reports whether the error is an HTTP 404.
func (e *APIError) IsNotFound() bool {
	return e.Status == 404
}

// IsUnauthorized reports whether the error is an HTTP 401.
func (e *APIError) IsUnauthorized() bool {
	return e.Status == 401
}
