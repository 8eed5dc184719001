// Package analysis provides the cost-aware multi-provider AI analysis core:
// provider orchestration, response normalization, and the error taxonomy
// shared with the provider adapters.
package analysis

import (
	"errors"
	"fmt"

	"github.com/dkallio/sentinel/internal/retry"
)

// ConfigurationError is the only failure the orchestrator surfaces to
// callers, e.g. no provider configured at all.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// AuthError means the backend rejected our credentials. Non-retryable;
// triggers provider-chain fallback.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QuotaError means the backend refused the call for rate or quota reasons.
// Non-retryable; triggers provider-chain fallback.
type QuotaError struct {
	Provider string
	Err      error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: quota exceeded: %v", e.Provider, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// StructuralError means the backend answered but no usable text could be
// extracted from its response envelope (empty candidates, safety rejection).
// Retryable, and separately drives the prompt-simplification ladder. Token
// counts are carried so the consumed call can still be priced.
type StructuralError struct {
	Provider     string
	Reason       string
	InputTokens  int
	OutputTokens int
	Err          error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: structural error: %s", e.Provider, e.Reason)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// ParseFailure means the normalizer could not decode the raw text into the
// requested schema. Never propagated: always resolved via salvage.
type ParseFailure struct {
	RawText string
	Err     error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure: %v", e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// IsAuth reports whether err is an AuthError
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsQuota reports whether err is a QuotaError
func IsQuota(err error) bool {
	var target *QuotaError
	return errors.As(err, &target)
}

// IsStructural reports whether err is a StructuralError
func IsStructural(err error) bool {
	var target *StructuralError
	return errors.As(err, &target)
}

// Classify maps the error taxonomy onto the retry executor's classification:
// auth and quota failures are not worth repeating; server errors, structural
// errors, and anything unknown are.
func Classify(err error) retry.Classification {
	if IsAuth(err) || IsQuota(err) {
		return retry.NonRetryable
	}
	return retry.Retryable
}
