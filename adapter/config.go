package adapter

import (
	"time"

	"go.uber.org/zap"

	"github.com/salestaxio/poskit/analytics"
	"github.com/salestaxio/poskit/cache"
	"github.com/salestaxio/poskit/circuitbreaker"
	"github.com/salestaxio/poskit/health"
	"github.com/salestaxio/poskit/retry"
	"github.com/salestaxio/poskit/webhook"
)

// Config identifies and parameterizes one integration. Credentials and
// Settings are opaque to the adapter; they are passed through for the
// Operations implementation to consume.
type Config struct {
	ID      string
	Name    string
	Enabled bool

	Credentials map[string]string
	Settings    map[string]string

	// WebhookSecret verifies inbound webhook signatures and signs
	// outbound deliveries. Empty disables verification.
	WebhookSecret string
}

type options struct {
	logger *zap.Logger

	breakerOpts []circuitbreaker.Option
	retryOpts   []retry.Option

	syncCacheTTL time.Duration
	taxCacheTTL  time.Duration
	cacheOpts    []cache.Option

	monitor   health.Monitor
	tracker   *analytics.Tracker
	deliverer *webhook.Deliverer
}

type Option func(*options)

func defaultOptions() options {
	return options{
		logger:      zap.NewNop(),
		taxCacheTTL: 5 * time.Minute,
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithCircuitBreakerOptions(opts ...circuitbreaker.Option) Option {
	return func(o *options) {
		o.breakerOpts = append(o.breakerOpts, opts...)
	}
}

func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *options) {
		o.retryOpts = append(o.retryOpts, opts...)
	}
}

// WithSyncCache enables response caching for the sync operations. Disabled
// by default: sync calls move a cursor, so most deployments want them live.
func WithSyncCache(ttl time.Duration) Option {
	return func(o *options) {
		o.syncCacheTTL = ttl
	}
}

// WithTaxCacheTTL overrides the expiry of the dedicated tax result cache.
func WithTaxCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.taxCacheTTL = ttl
	}
}

func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) {
		o.cacheOpts = append(o.cacheOpts, opts...)
	}
}

func WithHealthMonitor(monitor health.Monitor) Option {
	return func(o *options) {
		o.monitor = monitor
	}
}

func WithAnalytics(tracker *analytics.Tracker) Option {
	return func(o *options) {
		o.tracker = tracker
	}
}

func WithWebhookDeliverer(deliverer *webhook.Deliverer) Option {
	return func(o *options) {
		o.deliverer = deliverer
	}
}
