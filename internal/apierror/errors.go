// Package apierror defines errors that are safe to show to API callers.
package apierror

import (
	"errors"
	"net/http"
)

// APIError is an error with an HTTP status, a machine-readable code and a
// message that can be returned to the caller as is.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// As extracts an *APIError from err.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewErrMissingFields(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "missing_fields", Message: message}
}

func NewErrInvalidRequest(err error) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body", Err: err}
}

func NewErrInvalidCredentials() *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "invalid credentials"}
}

func NewErrAccessDenied() *APIError {
	return &APIError{Status: http.StatusForbidden, Code: "access_denied", Message: "Access denied. Administrator privileges required."}
}

func NewErrRegistrationDisabled() *APIError {
	return &APIError{Status: http.StatusForbidden, Code: "registration_disabled", Message: "Registration is disabled. Only administrators can access this system."}
}

func NewErrMissingAuthorizationToken() *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "missing_token", Message: "missing token"}
}

// NewErrInvalidAuthorizationToken hides the reason a token was rejected.
func NewErrInvalidAuthorizationToken(err error) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "invalid_token", Message: "invalid token", Err: err}
}

func NewErrUserNotFound() *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "user_not_found", Message: "user not found"}
}

func NewErrUnsupportedKind(err error) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "unsupported_kind", Message: "unsupported type", Err: err}
}

func NewErrGatewayMisconfigured(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "gateway_misconfigured", Message: "VT_API_KEY not configured on server", Err: err}
}

// NewErrUpstream keeps the cause for logs only.
func NewErrUpstream(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "upstream_error", Message: "upstream lookup failed", Err: err}
}

func NewErrInternalServerError(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error", Err: err}
}
