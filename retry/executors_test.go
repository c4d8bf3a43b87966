package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/salestaxio/poskit/backoff"
	"github.com/salestaxio/poskit/circuitbreaker"
	"github.com/salestaxio/poskit/retry"
)

var errTransient = errors.New("transient upstream failure")

func fastPolicy(t *testing.T, opts ...retry.Option) *retry.Policy {
	t.Helper()
	base := []retry.Option{
		retry.WithBackoff(backoff.NewFixed(time.Millisecond)),
	}
	return retry.MustNewPolicy("test.fast", append(base, opts...)...)
}

func TestExecute_SucceedsAfterTransientFailures(t *testing.T) {
	p := fastPolicy(t, retry.WithMaxAttempts(5))

	calls := 0
	result, err := retry.Execute(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", errTransient
		}
		return "synced", nil
	})

	require.NoError(t, err)
	require.Equal(t, "synced", result)
	// k failures then success means exactly k+1 invocations
	require.Equal(t, 3, calls)
}

func TestExecute_NonRetryableStopsImmediately(t *testing.T) {
	errAuth := errors.New("invalid credentials")
	p := fastPolicy(t, retry.WithMaxAttempts(5), retry.WithIgnoreErrors(errAuth))

	calls := 0
	_, err := retry.Execute(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", errAuth
	})

	require.Equal(t, 1, calls)

	retryErr, ok := retry.AsRetryError(err)
	require.True(t, ok)
	require.Equal(t, 1, retryErr.AttemptCount())
	require.False(t, retryErr.Exhausted())
	require.ErrorIs(t, err, errAuth)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	p := fastPolicy(t, retry.WithMaxAttempts(3))

	calls := 0
	_, err := retry.Execute(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", errTransient
	})

	require.Equal(t, 3, calls)

	retryErr, ok := retry.AsRetryError(err)
	require.True(t, ok)
	require.Equal(t, 3, retryErr.AttemptCount())
	require.True(t, retryErr.Exhausted())
	require.ErrorIs(t, retryErr.Last(), errTransient)
}

func TestExecute_CanceledDuringBackoff(t *testing.T) {
	p := retry.MustNewPolicy("test.slow",
		retry.WithMaxAttempts(3),
		retry.WithBackoff(backoff.NewFixed(time.Second)),
	)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := retry.Execute(ctx, p, func(context.Context) (string, error) {
		calls++
		return "", errTransient
	})

	require.Equal(t, 1, calls)

	retryErr, ok := retry.AsRetryError(err)
	require.True(t, ok)
	require.ErrorIs(t, retryErr.TerminationError, context.Canceled)
}

func TestExecute_AttemptTimeout(t *testing.T) {
	p := fastPolicy(t,
		retry.WithMaxAttempts(2),
		retry.WithAttemptTimeout(10*time.Millisecond),
		retry.WithIgnoreErrors(context.DeadlineExceeded),
	)

	calls := 0
	_, err := retry.Execute(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		<-ctx.Done()
		return "", ctx.Err()
	})

	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecuteWithCircuit_OpenCircuitNotRetried(t *testing.T) {
	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(1),
		circuitbreaker.WithRecoveryTimeout(time.Minute),
	)
	p := retry.MustNewCircuitAwarePolicy("square.sync",
		retry.WithMaxAttempts(5),
		retry.WithBackoff(backoff.NewFixed(time.Millisecond)),
	)

	calls := 0
	_, err := retry.ExecuteWithCircuit(context.Background(), p, cb, func(context.Context) (string, error) {
		calls++
		return "", errTransient
	})

	// First attempt trips the breaker; the second is rejected without
	// invoking the operation and is classified non-retryable.
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	require.Equal(t, circuitbreaker.StateOpen, cb.State())
}

func TestExecuteWithCircuit_BreakerObservesEveryAttempt(t *testing.T) {
	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(3),
		circuitbreaker.WithRecoveryTimeout(time.Minute),
	)
	p := retry.MustNewCircuitAwarePolicy("square.sync",
		retry.WithMaxAttempts(2),
		retry.WithBackoff(backoff.NewFixed(time.Millisecond)),
	)

	calls := 0
	op := func(context.Context) (string, error) {
		calls++
		return "", errTransient
	}

	_, err := retry.ExecuteWithCircuit(context.Background(), p, cb, op)
	require.Error(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, circuitbreaker.StateClosed, cb.State())

	// Third underlying failure trips the breaker mid-sequence.
	_, err = retry.ExecuteWithCircuit(context.Background(), p, cb, op)
	require.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	require.Equal(t, 3, calls)
	require.Equal(t, circuitbreaker.StateOpen, cb.State())
}

func TestDo(t *testing.T) {
	p := fastPolicy(t, retry.WithMaxAttempts(2))

	calls := 0
	err := retry.Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
