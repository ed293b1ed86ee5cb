package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token expired")

	ErrUnsupportedKind      = errors.New("unsupported lookup kind")
	ErrGatewayMisconfigured = errors.New("lookup gateway is not configured")
)

// UpstreamError wraps a failure talking to the remote lookup API.
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream lookup failed: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
