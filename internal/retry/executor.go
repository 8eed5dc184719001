// Package retry provides the classified-retry-with-backoff primitive shared
// by every provider adapter.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Classification decides whether a failed attempt is worth repeating
type Classification int

const (
	// Retryable covers server errors, malformed responses, and anything
	// unrecognized
	Retryable Classification = iota
	// NonRetryable covers auth and quota failures that repeating cannot fix
	NonRetryable
)

// ClassifyFunc maps an operation error to a Classification
type ClassifyFunc func(error) Classification

// Policy holds the retry parameters
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
}

// DefaultPolicy returns the standard retry policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BaseDelay:         2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Delay returns the backoff delay before retrying after the given 1-based
// attempt: base × multiplier^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := math.Pow(p.BackoffMultiplier, float64(attempt-1))
	return time.Duration(float64(p.BaseDelay) * factor)
}

// Execute runs op up to policy.MaxAttempts times. A NonRetryable error aborts
// immediately. Retryable errors sleep the backoff delay and try again; the
// final attempt returns its error without sleeping. The sleep is the only
// suspension point and is cancelled promptly when ctx expires.
func Execute[T any](ctx context.Context, policy Policy, classify ClassifyFunc, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if classify != nil && classify(err) == NonRetryable {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		if err := sleep(ctx, policy.Delay(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}

// sleep waits for d or until ctx is done, whichever comes first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
