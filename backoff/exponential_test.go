package backoff

import (
	"testing"
	"time"
)

func TestExponential_Next(t *testing.T) {
	e := NewExponential(
		WithInitialInterval(100*time.Millisecond),
		WithMaxInterval(2*time.Second),
		WithMultiplier(2.0),
	)

	tests := []struct {
		attempt  uint
		expected time.Duration
	}{
		{attempt: 1, expected: 100 * time.Millisecond},
		{attempt: 2, expected: 200 * time.Millisecond},
		{attempt: 3, expected: 400 * time.Millisecond},
		{attempt: 4, expected: 800 * time.Millisecond},
		{attempt: 5, expected: 1600 * time.Millisecond},
		// capped at maxInterval
		{attempt: 6, expected: 2 * time.Second},
		{attempt: 10, expected: 2 * time.Second},
	}

	for _, tt := range tests {
		if got := e.Next(tt.attempt); got != tt.expected {
			t.Errorf("Exponential.Next(%d) = %v; want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestExponential_Next_Jitter(t *testing.T) {
	e := NewExponential(
		WithInitialInterval(100*time.Millisecond),
		WithMaxInterval(10*time.Second),
		WithMultiplier(2.0),
		WithJitter(0.5),
	)

	base := 400 * time.Millisecond
	for i := 0; i < 100; i++ {
		got := e.Next(3)
		if got < base || got >= base+base/2 {
			t.Fatalf("Exponential.Next(3) = %v; want in [%v, %v)", got, base, base+base/2)
		}
	}
}

func TestExponential_Next_ZeroAttempt(t *testing.T) {
	e := NewExponential(WithInitialInterval(time.Second))
	if got := e.Next(0); got != time.Second {
		t.Errorf("Exponential.Next(0) = %v; want %v", got, time.Second)
	}
}
