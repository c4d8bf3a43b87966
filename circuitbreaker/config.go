package circuitbreaker

import (
	"time"
)

type Config struct {
	Metrics Metrics

	// FailureThreshold is the number of consecutive failures within the
	// monitoring window that trips the breaker open.
	FailureThreshold int

	// MonitoringWindow bounds how long failures are remembered. Failures
	// older than the window no longer count toward the threshold.
	MonitoringWindow time.Duration

	// RecoveryTimeout is the duration the breaker stays open before
	// admitting a single trial call (half-open).
	RecoveryTimeout time.Duration

	FailOnErrorPredicate func(error) bool

	FailErrors   []error
	IgnoreErrors []error
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		MonitoringWindow: 60 * time.Second,
		RecoveryTimeout:  30 * time.Second,
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		c.FailureThreshold = n
	}
}

func WithMonitoringWindow(d time.Duration) Option {
	return func(c *Config) {
		c.MonitoringWindow = d
	}
}

func WithRecoveryTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.RecoveryTimeout = d
	}
}

func WithFailOnErrorPredicate(predicate func(error) bool) Option {
	return func(c *Config) {
		c.FailOnErrorPredicate = predicate
	}
}

func WithFailErrors(errors ...error) Option {
	return func(c *Config) {
		c.FailErrors = append(c.FailErrors, errors...)
	}
}

func WithIgnoreErrors(errors ...error) Option {
	return func(c *Config) {
		c.IgnoreErrors = append(c.IgnoreErrors, errors...)
	}
}
