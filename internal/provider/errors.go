package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSkip marks a permanent precondition failure, typically missing or
// invalid endpoint configuration. Skipped deliveries are never retried.
var ErrSkip = errors.New("delivery skipped")

// SkipError carries the human-readable reason an endpoint cannot be used.
type SkipError struct {
	Reason string
	Cause  error
}

func (e *SkipError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *SkipError) Is(target error) bool {
	return target == ErrSkip
}

func (e *SkipError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Skipf returns a skip-classified error with a formatted reason.
func Skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// Skip wraps cause as a skip-classified error.
func Skip(reason string, cause error) error {
	return &SkipError{Reason: reason, Cause: cause}
}

// IsSkip reports whether err must end the delivery without retrying.
func IsSkip(err error) bool {
	return err != nil && errors.Is(err, ErrSkip)
}

// ProviderError is a failure-classified outbound call error.
type ProviderError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// StatusCode extracts the remote status code from err, or 0.
func StatusCode(err error) int {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.StatusCode
	}
	return 0
}
