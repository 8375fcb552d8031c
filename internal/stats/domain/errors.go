package domain

import (
	"errors"
	"fmt"
)

// ErrNotSupported indicates no provider (dedicated or derived) can serve a
// (dataset, league) pair. It is an explicit outcome, not a provider failure.
var ErrNotSupported = errors.New("dataset not supported for league")

// ValidationError reports a bad or conflicting filter. It is raised strictly
// before any network activity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid filters: %s", e.Reason)
	}
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Reason)
}

// NewValidationError constructs a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TransientError marks a provider failure that is eligible for retry:
// timeouts, 5xx responses, and explicit rate-limit responses.
type TransientError struct {
	Provider string
	Cause    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("provider %s: transient: %v", e.Provider, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// PermanentError marks a provider failure that must not be retried: 4xx
// other than rate-limit, malformed responses, or retry exhaustion. It always
// carries the provider id and the last underlying cause.
type PermanentError struct {
	Provider string
	Cause    error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Cause)
}

func (e *PermanentError) Unwrap() error { return e.Cause }

// Transient wraps err as a retryable provider failure.
func Transient(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Provider: provider, Cause: err}
}

// Permanent wraps err as a non-retryable provider failure.
func Permanent(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Provider: provider, Cause: err}
}

// IsTransient reports whether err is classified transient.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is classified permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
