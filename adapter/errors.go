package adapter

import (
	"errors"
	"fmt"
)

const (
	CodeCircuitOpen    = "circuit_open"
	CodeRetryExhausted = "retry_exhausted"
	CodeNonRetryable   = "non_retryable"
	CodeCanceled       = "canceled"
	CodeDisabled       = "integration_disabled"
	CodeUpstream       = "upstream_error"
)

// ActionableError is the only error type adapter methods surface. Internal
// retry and circuit breaker errors are translated into this shape at the
// boundary, so callers decide on Code and Retryable without knowing the
// resilience internals.
type ActionableError struct {
	Code          string
	Message       string
	Retryable     bool
	Operation     string
	IntegrationID string
	Err           error
}

func (e *ActionableError) Error() string {
	return fmt.Sprintf("%s: %s: %s: %s", e.IntegrationID, e.Operation, e.Code, e.Message)
}

func (e *ActionableError) Unwrap() error {
	return e.Err
}

func AsActionableError(err error) (*ActionableError, bool) {
	var ae *ActionableError
	ok := errors.As(err, &ae)
	return ae, ok
}
