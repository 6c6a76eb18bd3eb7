package domain

import (
	"errors"
	"fmt"
)

// AuthError is returned when the caller presented no usable credential.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ErrNoCredential is the AuthError returned when no bearer credential was supplied.
var ErrNoCredential = &AuthError{Message: "no access token"}

// UpstreamKind narrows an upstream failure down to what the caller can act on.
type UpstreamKind string

const (
	UpstreamUnauthorized UpstreamKind = "unauthorized"
	UpstreamForbidden    UpstreamKind = "forbidden"
	UpstreamRateLimited  UpstreamKind = "rateLimited"
	UpstreamOther        UpstreamKind = "other"
)

// UpstreamError wraps a failure reported by the mail provider for a whole batch.
type UpstreamError struct {
	Kind UpstreamKind
	Op   string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError builds an UpstreamError for operation op.
func NewUpstreamError(kind UpstreamKind, op string, err error) *UpstreamError {
	return &UpstreamError{Kind: kind, Op: op, Err: err}
}

// ValidationError rejects a request before any work begins.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError signals that the service is missing configuration it needs for the request.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UpstreamKindOf returns the kind of the first UpstreamError in err's chain.
func UpstreamKindOf(err error) (UpstreamKind, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Kind, true
	}
	return "", false
}
