package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrOpenState     = errors.New("circuitbreaker: open state")
	ErrHalfOpenState = errors.New("circuitbreaker: half-open state with trial call in flight")
)

func IsCallNotPermittedError(err error) bool {
	return errors.Is(err, ErrOpenState) || errors.Is(err, ErrHalfOpenState)
}

type CircuitBreaker interface {
	Name() string
	State() State

	// Failures returns the current consecutive failure count inside the
	// monitoring window.
	Failures() int

	before(ctx context.Context) error
	after(ctx context.Context, err error, duration time.Duration)
}

var _ CircuitBreaker = (*circuitBreakerImpl)(nil)

type circuitBreakerImpl struct {
	name   string
	config Config

	mu             sync.Mutex
	state          State
	transitionTime time.Time

	failureCount int
	windowStart  time.Time

	trialInFlight bool
}

func New(name string, opts ...Option) CircuitBreaker {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &circuitBreakerImpl{
		name:           name,
		config:         config,
		state:          StateClosed,
		transitionTime: time.Now(),
	}
}

func (cb *circuitBreakerImpl) Name() string {
	return cb.name
}

func (cb *circuitBreakerImpl) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateUnsafe()
}

func (cb *circuitBreakerImpl) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

func (cb *circuitBreakerImpl) metricsReporter() Metrics {
	if cb.config.Metrics != nil {
		return cb.config.Metrics
	}
	return GetGlobalMetrics()
}

// currentStateUnsafe folds the elapsed recovery timeout into the reported
// state, so observers see HALF_OPEN once the breaker would admit a trial.
func (cb *circuitBreakerImpl) currentStateUnsafe() State {
	if cb.state == StateOpen && time.Since(cb.transitionTime) >= cb.config.RecoveryTimeout {
		return StateHalfOpen
	}
	return cb.state
}

func (cb *circuitBreakerImpl) setStateUnsafe(ctx context.Context, state State) {
	if cb.state == state {
		return
	}

	from := cb.state
	cb.state = state
	cb.transitionTime = time.Now()

	switch state {
	case StateClosed:
		cb.failureCount = 0
		cb.windowStart = time.Time{}
	case StateHalfOpen:
		cb.trialInFlight = false
	}

	cb.metricsReporter().RecordStateTransition(ctx, StateTransition{
		Name:      cb.name,
		FromState: from,
		ToState:   state,
		Timestamp: cb.transitionTime,
	})
}

func (cb *circuitBreakerImpl) rejectUnsafe(ctx context.Context, err error) error {
	cb.metricsReporter().RecordCallRejection(ctx, CallRejection{
		Name:  cb.name,
		State: cb.state,
		Error: err,
	})
	return err
}

func (cb *circuitBreakerImpl) before(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.transitionTime) >= cb.config.RecoveryTimeout {
		cb.setStateUnsafe(ctx, StateHalfOpen)
	}

	switch cb.state {
	case StateOpen:
		return cb.rejectUnsafe(ctx, ErrOpenState)
	case StateHalfOpen:
		// Only the first concurrent caller becomes the trial. Everyone
		// else is rejected as if the breaker were still open.
		if cb.trialInFlight {
			return cb.rejectUnsafe(ctx, ErrOpenState)
		}
		cb.trialInFlight = true
	default:
		if cb.failureCount > 0 && time.Since(cb.windowStart) > cb.config.MonitoringWindow {
			cb.failureCount = 0
			cb.windowStart = time.Time{}
		}
	}

	return nil
}

func (cb *circuitBreakerImpl) after(ctx context.Context, err error, duration time.Duration) {
	isFailure := cb.shouldFailCall(err)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.metricsReporter().RecordCallResult(ctx, CallResult{
		Name:     cb.name,
		Success:  !isFailure,
		Duration: duration,
		Error:    err,
	})

	switch cb.state {
	case StateHalfOpen:
		cb.trialInFlight = false
		if isFailure {
			cb.setStateUnsafe(ctx, StateOpen)
		} else {
			cb.setStateUnsafe(ctx, StateClosed)
		}

	case StateClosed:
		if !isFailure {
			cb.failureCount = 0
			cb.windowStart = time.Time{}
			return
		}

		now := time.Now()
		if cb.failureCount == 0 || now.Sub(cb.windowStart) > cb.config.MonitoringWindow {
			cb.failureCount = 1
			cb.windowStart = now
		} else {
			cb.failureCount++
		}

		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setStateUnsafe(ctx, StateOpen)
		}

	default:
		// A call admitted before the breaker opened may complete while
		// OPEN. Its outcome no longer influences state.
	}
}

func (cb *circuitBreakerImpl) shouldFailCall(err error) bool {
	if err == nil {
		return false
	}

	if cb.config.FailOnErrorPredicate != nil && cb.config.FailOnErrorPredicate(err) {
		return true
	}

	for _, failErr := range cb.config.FailErrors {
		if errors.Is(err, failErr) {
			return true
		}
	}

	for _, ignoreErr := range cb.config.IgnoreErrors {
		if errors.Is(err, ignoreErr) {
			return false
		}
	}

	return true
}
