package circuitbreaker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/salestaxio/poskit/circuitbreaker"
)

var errUpstream = errors.New("upstream unavailable")

func failingOp(calls *int) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		*calls++
		return "", errUpstream
	}
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(3),
		circuitbreaker.WithRecoveryTimeout(time.Minute),
	)

	var calls int
	for i := 0; i < 3; i++ {
		_, err := circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
		require.ErrorIs(t, err, errUpstream)
	}

	require.Equal(t, circuitbreaker.StateOpen, cb.State())
	require.Equal(t, 3, calls)

	// While open the operation is never invoked.
	_, err := circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	require.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	require.Equal(t, 3, calls)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := circuitbreaker.New("square", circuitbreaker.WithFailureThreshold(3))

	var calls int
	for i := 0; i < 2; i++ {
		_, _ = circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	}
	require.Equal(t, 2, cb.Failures())

	_, err := circuitbreaker.Execute(context.Background(), cb, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, cb.Failures())
	require.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenTrialSuccess(t *testing.T) {
	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(1),
		circuitbreaker.WithRecoveryTimeout(30*time.Millisecond),
	)

	var calls int
	_, _ = circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	require.Equal(t, circuitbreaker.StateOpen, cb.State())

	time.Sleep(40 * time.Millisecond)
	require.Equal(t, circuitbreaker.StateHalfOpen, cb.State())

	result, err := circuitbreaker.Execute(context.Background(), cb, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, circuitbreaker.StateClosed, cb.State())
	require.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_HalfOpenTrialFailureReopens(t *testing.T) {
	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(1),
		circuitbreaker.WithRecoveryTimeout(30*time.Millisecond),
	)

	var calls int
	_, _ = circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	time.Sleep(40 * time.Millisecond)

	_, err := circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	require.ErrorIs(t, err, errUpstream)
	require.Equal(t, circuitbreaker.StateOpen, cb.State())

	// Recovery timer restarted: still rejected.
	_, err = circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	require.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	require.Equal(t, 2, calls)
}

func TestCircuitBreaker_HalfOpenSingleConcurrentTrial(t *testing.T) {
	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(1),
		circuitbreaker.WithRecoveryTimeout(10*time.Millisecond),
	)

	_, _ = circuitbreaker.Execute(context.Background(), cb, func(context.Context) (string, error) {
		return "", errUpstream
	})
	time.Sleep(20 * time.Millisecond)

	trialStarted := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := circuitbreaker.Execute(context.Background(), cb, func(context.Context) (string, error) {
			close(trialStarted)
			<-release
			return "ok", nil
		})
		require.NoError(t, err)
	}()

	<-trialStarted

	// A concurrent call during the in-flight trial is rejected.
	_, err := circuitbreaker.Execute(context.Background(), cb, func(context.Context) (string, error) {
		return "should not run", nil
	})
	require.ErrorIs(t, err, circuitbreaker.ErrOpenState)

	close(release)
	wg.Wait()

	require.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_MonitoringWindowForgetsOldFailures(t *testing.T) {
	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(2),
		circuitbreaker.WithMonitoringWindow(30*time.Millisecond),
	)

	var calls int
	_, _ = circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	require.Equal(t, 1, cb.Failures())

	time.Sleep(50 * time.Millisecond)

	_, _ = circuitbreaker.Execute(context.Background(), cb, failingOp(&calls))
	require.Equal(t, circuitbreaker.StateClosed, cb.State())
	require.Equal(t, 1, cb.Failures())
}

func TestCircuitBreaker_IgnoreErrors(t *testing.T) {
	errValidation := errors.New("validation failed")

	cb := circuitbreaker.New("square",
		circuitbreaker.WithFailureThreshold(1),
		circuitbreaker.WithIgnoreErrors(errValidation),
	)

	_, err := circuitbreaker.Execute(context.Background(), cb, func(context.Context) (string, error) {
		return "", errValidation
	})
	require.ErrorIs(t, err, errValidation)
	require.Equal(t, circuitbreaker.StateClosed, cb.State())
	require.Equal(t, 0, cb.Failures())
}

func TestExecute_PanicCountsAsFailure(t *testing.T) {
	cb := circuitbreaker.New("square", circuitbreaker.WithFailureThreshold(1))

	_, err := circuitbreaker.Execute(context.Background(), cb, func(context.Context) (string, error) {
		panic("boom")
	})
	require.True(t, circuitbreaker.IsPanicError(err))
	require.Equal(t, circuitbreaker.StateOpen, cb.State())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    circuitbreaker.State
		expected string
	}{
		{circuitbreaker.StateClosed, "CLOSED"},
		{circuitbreaker.StateHalfOpen, "HALF_OPEN"},
		{circuitbreaker.StateOpen, "OPEN"},
		{circuitbreaker.State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, tt.state.String())
	}
}
