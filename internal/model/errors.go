package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks. Every typed error below unwraps to one of them.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrTransport       = errors.New("transport error")
	ErrSchemaViolation = errors.New("schema violation")
)

// ConfigurationError reports a problem with the caller's inputs or settings.
// It is always raised before any request leaves the process.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError is a shorthand constructor
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// TransportKind classifies a failure talking to the inference service
type TransportKind string

const (
	TransportTimeout      TransportKind = "timeout"
	TransportRateLimited  TransportKind = "rate_limited"
	TransportUnauthorized TransportKind = "unauthorized"
	TransportUnavailable  TransportKind = "unavailable"
	TransportNetwork      TransportKind = "network"
	TransportBadRequest   TransportKind = "bad_request"
	TransportMalformed    TransportKind = "malformed"
	TransportCanceled     TransportKind = "canceled"
)

// TransportError wraps a failed round trip to the inference service
type TransportError struct {
	Kind       TransportKind
	StatusCode int    // HTTP status, 0 when no response was received
	Message    string // upstream message, if any
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("transport error (%s)", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// Retryable reports whether re-running the whole extraction may succeed.
// The core never retries on its own.
func (e *TransportError) Retryable() bool {
	switch e.Kind {
	case TransportTimeout, TransportRateLimited, TransportUnavailable, TransportNetwork:
		return true
	default:
		return false
	}
}

// SchemaViolation reports a response that does not satisfy the result contract
type SchemaViolation struct {
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation: %s", e.Reason)
	}
	return fmt.Sprintf("schema violation: %s: %s", e.Field, e.Reason)
}

func (e *SchemaViolation) Unwrap() error { return ErrSchemaViolation }

// ErrorKind returns "configuration", "transport", "schema" or "internal"
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrSchemaViolation):
		return "schema"
	default:
		return "internal"
	}
}

// IsRetryable reports whether err is a TransportError worth retrying
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}
