package backoff

import (
	"math"
	"math/rand"
	"time"
)

var _ Backoff = (*Exponential)(nil)

// Exponential doubles (by default) the delay on every attempt, caps it at
// maxInterval, then adds jitter drawn uniformly from [0, jitter*delay) so
// that concurrent callers retrying against the same upstream do not
// synchronize.
type Exponential struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	jitter          float64
}

type ExponentialOption func(*Exponential)

func WithInitialInterval(d time.Duration) ExponentialOption {
	return func(e *Exponential) {
		e.initialInterval = d
	}
}

func WithMaxInterval(d time.Duration) ExponentialOption {
	return func(e *Exponential) {
		e.maxInterval = d
	}
}

func WithMultiplier(m float64) ExponentialOption {
	return func(e *Exponential) {
		e.multiplier = m
	}
}

// WithJitter sets the jitter factor. The delay for an attempt becomes
// delay + rand[0, factor*delay).
func WithJitter(factor float64) ExponentialOption {
	return func(e *Exponential) {
		e.jitter = factor
	}
}

func NewExponential(opts ...ExponentialOption) Exponential {
	e := Exponential{
		initialInterval: 500 * time.Millisecond,
		maxInterval:     10 * time.Second,
		multiplier:      2.0,
		jitter:          0.0,
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

func (e Exponential) Next(attempt uint) time.Duration {
	if attempt == 0 {
		attempt = 1
	}

	interval := float64(e.initialInterval) * math.Pow(e.multiplier, float64(attempt-1))
	if interval > float64(e.maxInterval) {
		interval = float64(e.maxInterval)
	}

	if e.jitter > 0 {
		interval += rand.Float64() * e.jitter * interval
	}

	return time.Duration(interval)
}
