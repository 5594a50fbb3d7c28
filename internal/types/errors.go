package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfig     = errors.New("configuration error")
	ErrValidation = errors.New("validation error")
	ErrUpstream   = errors.New("vault request failed")
	ErrAuth       = errors.New("credential error")

	// Operation-scoped upstream failures. Each matches ErrUpstream under
	// errors.Is so the transport can map them uniformly.
	ErrTokenization   = fmt.Errorf("tokenization failed: %w", ErrUpstream)
	ErrDetokenization = fmt.Errorf("detokenization failed: %w", ErrUpstream)
	ErrQuery          = fmt.Errorf("query failed: %w", ErrUpstream)
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}

// UpstreamStatusError carries the HTTP status and message the vault returned so
// the transport can echo the status instead of a blanket 500.
type UpstreamStatusError struct {
	Status  int
	Message string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("vault returned status %d: %s", e.Status, e.Message)
}

func (e *UpstreamStatusError) Unwrap() error { return ErrUpstream }
