package services

import (
	"context"
	"errors"
	"net"
	"net/http"

	"storefront-service/providers"
)

// ErrorKind classifies a checkout failure.
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "configuration"
	KindValidation      ErrorKind = "validation"
	KindUpstreamFatal   ErrorKind = "upstream_fatal"
	KindUpstreamSoft    ErrorKind = "upstream_soft"
	KindUpstreamTimeout ErrorKind = "upstream_timeout"
	KindUnexpected      ErrorKind = "unexpected"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	// Step is the saga step that failed, empty for pre-saga failures.
	Step string
	// Details is the parsed upstream error payload, when surfaced.
	Details *providers.APIError
	// Missing lists absent request fields for validation failures.
	Missing []string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

// ErrAPIKeyNotConfigured is surfaced when no licensing API key is set.
var ErrAPIKeyNotConfigured = errors.New("SALABLE_API_KEY not configured")

func configurationError() *ServiceError {
	return &ServiceError{
		Kind:       KindConfiguration,
		StatusCode: http.StatusInternalServerError,
		Message:    ErrAPIKeyNotConfigured.Error(),
		Err:        ErrAPIKeyNotConfigured,
	}
}

// isTimeout reports whether err came from an expired deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
