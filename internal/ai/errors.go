package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures worth retrying: throttling, timeouts, 5xx.
	ErrTransient = errors.New("transient service error")
	// ErrAuthentication marks rejected or missing credentials. Never retried.
	ErrAuthentication = errors.New("authentication error")
	// ErrMalformedResponse marks model output without a usable structure.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrEmptyInput marks empty candidate or requirement text.
	ErrEmptyInput = errors.New("empty input")
)

// ServiceError attaches a category to a provider error so callers can use
// errors.Is on the category and errors.As on the provider error.
type ServiceError struct {
	Kind error
	Op   string
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Transient wraps err as retryable.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Kind: ErrTransient, Op: op, Err: err}
}

// Authentication wraps err as a fatal credential failure.
func Authentication(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Kind: ErrAuthentication, Op: op, Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsAuthentication reports whether err must abort the whole run.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}
