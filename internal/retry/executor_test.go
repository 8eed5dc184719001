package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:       attempts,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestExecuteReturnsFirstSuccess(t *testing.T) {
	calls := 0
	result, err := Execute(context.Background(), fastPolicy(3), nil, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestExecuteNonRetryableAbortsImmediately(t *testing.T) {
	authErr := errors.New("invalid api key")
	classify := func(err error) Classification {
		return NonRetryable
	}

	calls := 0
	_, err := Execute(context.Background(), fastPolicy(5), classify, func(ctx context.Context) (int, error) {
		calls++
		return 0, authErr
	})

	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, calls, "a non-retryable error must consume exactly one attempt")
}

func TestExecuteRetryableExhaustsAttempts(t *testing.T) {
	transient := errors.New("upstream 503")
	classify := func(err error) Classification {
		return Retryable
	}

	calls := 0
	_, err := Execute(context.Background(), fastPolicy(3), classify, func(ctx context.Context) (int, error) {
		calls++
		return 0, transient
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
}

func TestExecuteRecoversMidway(t *testing.T) {
	calls := 0
	result, err := Execute(context.Background(), fastPolicy(3), nil, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteNilClassifyTreatsErrorsAsRetryable(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), fastPolicy(2), nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Execute(ctx, fastPolicy(3), nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestExecuteContextCancelledDuringBackoff(t *testing.T) {
	policy := Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Minute,
		BackoffMultiplier: 2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Execute(ctx, policy, nil, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("flaky")
		})
		done <- err
	}()

	// Let the first attempt fail and the backoff sleep begin
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return promptly after cancellation")
	}
}

func TestExecuteBackoffDelaysMatchPolicy(t *testing.T) {
	policy := Policy{
		MaxAttempts:       3,
		BaseDelay:         40 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	var stamps []time.Time
	_, err := Execute(context.Background(), policy, nil, func(ctx context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("flaky")
	})
	require.Error(t, err)
	require.Len(t, stamps, 3)

	// Expected sleeps: 40ms then 80ms. Lower bounds are exact; upper bounds
	// leave generous headroom for scheduler jitter.
	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, first, 40*time.Millisecond)
	assert.Less(t, first, 200*time.Millisecond)
	assert.GreaterOrEqual(t, second, 80*time.Millisecond)
	assert.Less(t, second, 300*time.Millisecond)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, BackoffMultiplier: 2.0}

	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))

	// Out-of-range attempts clamp to the base delay
	assert.Equal(t, 2*time.Second, p.Delay(0))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.BaseDelay)
	assert.Equal(t, 2.0, p.BackoffMultiplier)
}
