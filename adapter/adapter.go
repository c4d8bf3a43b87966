package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salestaxio/poskit/analytics"
	"github.com/salestaxio/poskit/cache"
	"github.com/salestaxio/poskit/circuitbreaker"
	"github.com/salestaxio/poskit/health"
	"github.com/salestaxio/poskit/retry"
	"github.com/salestaxio/poskit/webhook"
)

// Adapter wraps a concrete POS integration's Operations with a circuit
// breaker, retries, response caching, health scoring, analytics and webhook
// handling. One Adapter instance governs one integration id; it is safe for
// concurrent use by many request handlers.
type Adapter struct {
	config Config
	ops    Operations
	logger *zap.Logger

	breaker circuitbreaker.CircuitBreaker
	policy  *retry.Policy

	syncCache    cache.Cache
	syncCacheTTL time.Duration

	taxCache    cache.Cache
	taxCacheTTL time.Duration

	monitor    health.Monitor
	tracker    *analytics.Tracker
	ownTracker bool
	deliverer  *webhook.Deliverer
}

// Metrics is the dashboard view of one integration.
type Metrics struct {
	ID           string
	Name         string
	Enabled      bool
	HealthScore  float64
	CircuitState string

	Health        health.Snapshot
	TaxCacheStats cache.Stats

	// SyncCacheStats is nil when sync result caching is disabled.
	SyncCacheStats *cache.Stats
}

func New(config Config, ops Operations, opts ...Option) (*Adapter, error) {
	if config.ID == "" {
		return nil, errors.New("adapter: config.ID is required")
	}
	if ops == nil {
		return nil, errors.New("adapter: operations implementation is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	policy, err := retry.NewCircuitAwarePolicy(config.ID+".retry", o.retryOpts...)
	if err != nil {
		return nil, fmt.Errorf("adapter: invalid retry options: %w", err)
	}

	a := &Adapter{
		config:      config,
		ops:         ops,
		logger:      o.logger,
		breaker:     circuitbreaker.New(config.ID, o.breakerOpts...),
		policy:      policy,
		taxCache:    cache.New(o.cacheOpts...),
		taxCacheTTL: o.taxCacheTTL,
		monitor:     o.monitor,
		tracker:     o.tracker,
		deliverer:   o.deliverer,
	}

	if o.syncCacheTTL > 0 {
		a.syncCache = cache.New(o.cacheOpts...)
		a.syncCacheTTL = o.syncCacheTTL
	}

	if a.monitor == nil {
		a.monitor = health.NewMonitor()
	}
	if a.tracker == nil {
		a.tracker = analytics.NewTracker(analytics.WithLogger(o.logger))
		a.ownTracker = true
	}
	if a.deliverer == nil {
		a.deliverer = webhook.NewDeliverer(
			webhook.WithSecret(config.WebhookSecret),
			webhook.WithLogger(o.logger),
		)
	}

	return a, nil
}

func (a *Adapter) ID() string {
	return a.config.ID
}

// Close releases resources the adapter owns. The analytics tracker is only
// closed when it was created internally.
func (a *Adapter) Close() {
	if a.ownTracker {
		a.tracker.Close()
	}
}

func (a *Adapter) track(name string, properties map[string]any) {
	a.tracker.Track(analytics.Event{
		Name:          name,
		IntegrationID: a.config.ID,
		Properties:    properties,
	})
}

func (a *Adapter) disabledError(operation string) *ActionableError {
	return &ActionableError{
		Code:          CodeDisabled,
		Message:       "integration is disabled",
		Retryable:     false,
		Operation:     operation,
		IntegrationID: a.config.ID,
	}
}

// wrap translates any internal failure into the boundary error type.
func (a *Adapter) wrap(operation string, err error) *ActionableError {
	ae := &ActionableError{
		Operation:     operation,
		IntegrationID: a.config.ID,
		Err:           err,
	}

	retryErr, isRetryErr := retry.AsRetryError(err)

	switch {
	case circuitbreaker.IsCallNotPermittedError(err):
		ae.Code = CodeCircuitOpen
		ae.Retryable = true
		ae.Message = "circuit open, retry after recovery timeout"

	case isRetryErr && retryErr.TerminationError != nil:
		ae.Code = CodeCanceled
		ae.Retryable = errors.Is(retryErr.TerminationError, context.DeadlineExceeded)
		ae.Message = retryErr.TerminationError.Error()

	case isRetryErr && retryErr.Exhausted():
		ae.Code = CodeRetryExhausted
		ae.Retryable = true
		ae.Message = fmt.Sprintf("failed after %d attempt(s): %v", retryErr.AttemptCount(), retryErr.Last())

	case isRetryErr:
		ae.Code = CodeNonRetryable
		ae.Retryable = false
		ae.Message = fmt.Sprintf("%v", retryErr.Last())

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		ae.Code = CodeCanceled
		ae.Retryable = errors.Is(err, context.DeadlineExceeded)
		ae.Message = err.Error()

	default:
		ae.Code = CodeUpstream
		ae.Retryable = false
		ae.Message = err.Error()
	}

	return ae
}

// run is the enhancement pipeline shared by every operation: retry wrapped
// around per-attempt circuit breaker execution, with health and analytics
// recorded on every completion, success or failure.
func run[T any](ctx context.Context, a *Adapter, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if !a.config.Enabled {
		return zero, a.disabledError(operation)
	}

	start := time.Now()
	result, err := retry.ExecuteWithCircuit(ctx, a.policy, a.breaker, fn)
	duration := time.Since(start)

	a.monitor.Record(a.config.ID, err == nil, duration)

	if err == nil {
		a.track(operation+".success", map[string]any{
			"duration_ms": duration.Milliseconds(),
		})
		return result, nil
	}

	ae := a.wrap(operation, err)
	a.track(operation+".failure", map[string]any{
		"duration_ms": duration.Milliseconds(),
		"code":        ae.Code,
		"retryable":   ae.Retryable,
	})
	a.logger.Warn("integration operation failed",
		zap.String("integration_id", a.config.ID),
		zap.String("operation", operation),
		zap.String("code", ae.Code),
		zap.Error(err),
	)

	return zero, ae
}

// runCached layers optional response caching on top of run.
func runCached[T any](ctx context.Context, a *Adapter, operation, cacheKey string, c cache.Cache, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if c != nil && cacheKey != "" {
		if data, ok := c.Get(cacheKey); ok {
			var cached T
			if err := json.Unmarshal(data, &cached); err == nil {
				a.track("cache.hit", map[string]any{"operation": operation})
				return cached, nil
			}
			c.Delete(cacheKey)
		}
	}

	result, err := run(ctx, a, operation, fn)
	if err != nil {
		return result, err
	}

	if c != nil && cacheKey != "" {
		if data, err := json.Marshal(result); err == nil {
			c.SetTTL(cacheKey, data, ttl)
		}
	}

	return result, nil
}

func (a *Adapter) syncCacheKey(operation string, since *time.Time) string {
	if a.syncCache == nil {
		return ""
	}

	cursor := "initial"
	if since != nil {
		cursor = since.UTC().Format(time.RFC3339Nano)
	}
	return cache.Key(a.config.ID, operation, cursor)
}

func (a *Adapter) SyncTransactions(ctx context.Context, since *time.Time) (SyncResult, error) {
	const op = "sync_transactions"
	return runCached(ctx, a, op, a.syncCacheKey(op, since), a.syncCache, a.syncCacheTTL,
		func(ctx context.Context) (SyncResult, error) {
			return a.ops.DoSyncTransactions(ctx, since)
		})
}

func (a *Adapter) SyncProducts(ctx context.Context, since *time.Time) (SyncResult, error) {
	const op = "sync_products"
	return runCached(ctx, a, op, a.syncCacheKey(op, since), a.syncCache, a.syncCacheTTL,
		func(ctx context.Context) (SyncResult, error) {
			return a.ops.DoSyncProducts(ctx, since)
		})
}

func (a *Adapter) SyncCustomers(ctx context.Context, since *time.Time) (SyncResult, error) {
	const op = "sync_customers"
	return runCached(ctx, a, op, a.syncCacheKey(op, since), a.syncCache, a.syncCacheTTL,
		func(ctx context.Context) (SyncResult, error) {
			return a.ops.DoSyncCustomers(ctx, since)
		})
}

// CalculateTax caches manually rather than through runCached: the key is a
// hash of the normalized request, and the cache is written only after a
// genuine calculation.
func (a *Adapter) CalculateTax(ctx context.Context, req TaxRequest) (TaxResult, error) {
	const op = "calculate_tax"

	if !a.config.Enabled {
		return TaxResult{}, a.disabledError(op)
	}

	key, keyErr := taxRequestKey(a.config.ID, req)
	if keyErr == nil {
		if data, ok := a.taxCache.Get(key); ok {
			var cached TaxResult
			if err := json.Unmarshal(data, &cached); err == nil {
				a.track("tax.cache_hit", nil)
				return cached, nil
			}
			a.taxCache.Delete(key)
		}
	}

	result, err := run(ctx, a, op, func(ctx context.Context) (TaxResult, error) {
		return a.ops.DoCalculateTax(ctx, req)
	})
	if err != nil {
		return TaxResult{}, err
	}

	if keyErr == nil {
		if data, err := json.Marshal(result); err == nil {
			a.taxCache.SetTTL(key, data, a.taxCacheTTL)
		}
	}

	return result, nil
}

func (a *Adapter) UpdateTransaction(ctx context.Context, update TransactionUpdate) (bool, error) {
	_, err := run(ctx, a, "update_transaction", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.ops.DoUpdateTransaction(ctx, update)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// HandleWebhook verifies the payload signature before delegating to the
// integration's ProcessWebhook hook. A signature mismatch returns false
// without invoking the hook. Verification is a pure function of payload and
// secret, so redelivered webhooks verify every time.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error) {
	const op = "process_webhook"

	if !a.config.Enabled {
		return false, a.disabledError(op)
	}

	if a.config.WebhookSecret != "" {
		if !webhook.VerifySignature(payload, signature, a.config.WebhookSecret) {
			a.track("webhook.rejected", nil)
			a.logger.Warn("webhook signature verification failed",
				zap.String("integration_id", a.config.ID),
			)
			return false, nil
		}
	}

	_, err := run(ctx, a, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.ops.ProcessWebhook(ctx, payload)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// SendWebhook delivers a payload to an external target. Delivery is
// best-effort: false means retries were exhausted. The only error is a
// malformed target URL.
func (a *Adapter) SendWebhook(ctx context.Context, target string, payload []byte) (bool, error) {
	ok, err := a.deliverer.Deliver(ctx, target, payload)
	if err != nil {
		return false, err
	}

	if ok {
		a.track("webhook.sent", map[string]any{"url": target})
	} else {
		a.track("webhook.delivery_failed", map[string]any{"url": target})
	}
	return ok, nil
}

func (a *Adapter) HealthMetrics() Metrics {
	m := Metrics{
		ID:            a.config.ID,
		Name:          a.config.Name,
		Enabled:       a.config.Enabled,
		HealthScore:   a.monitor.Score(a.config.ID),
		CircuitState:  a.breaker.State().String(),
		Health:        a.monitor.Snapshot(a.config.ID),
		TaxCacheStats: a.taxCache.Stats(),
	}

	if a.syncCache != nil {
		stats := a.syncCache.Stats()
		m.SyncCacheStats = &stats
	}

	return m
}

func (a *Adapter) AnalyticsReport(from, to time.Time) analytics.Report {
	return a.tracker.Report(a.config.ID, from, to)
}
