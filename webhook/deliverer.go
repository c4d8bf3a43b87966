package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/salestaxio/poskit/backoff"
	"github.com/salestaxio/poskit/retry"
)

// StatusError is returned internally when a delivery attempt got a non-2xx
// response. It drives the retry classification: 408, 429 and 5xx are worth
// retrying, other 4xx are not.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: unexpected status %d", e.StatusCode)
}

func retryableStatus(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout:
			return true
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return true
		case statusErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	// Network-level failures are transient until proven otherwise.
	return true
}

type Config struct {
	// Secret signs outbound payloads when non-empty.
	Secret string

	// SignatureHeader overrides the header carrying the signature.
	SignatureHeader string

	// MaxAttempts and Delay shape the delivery retry policy. Webhook
	// targets are external and unpredictable, so this policy is distinct
	// from the one protecting vendor API calls.
	MaxAttempts int
	Delay       backoff.Backoff

	Client *http.Client
	Logger *zap.Logger
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		SignatureHeader: SignatureHeader,
		MaxAttempts:     3,
		Delay:           backoff.NewExponential(backoff.WithInitialInterval(time.Second), backoff.WithJitter(0.2)),
		Client:          &http.Client{Timeout: 30 * time.Second},
		Logger:          zap.NewNop(),
	}
}

func WithSecret(secret string) Option {
	return func(c *Config) {
		c.Secret = secret
	}
}

func WithSignatureHeader(header string) Option {
	return func(c *Config) {
		c.SignatureHeader = header
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

func WithDelay(b backoff.Backoff) Option {
	return func(c *Config) {
		c.Delay = b
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.Client = client
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Deliverer sends signed webhook payloads with bounded retries. Delivery is
// best-effort: exhausted retries resolve to false with logged context, never
// an error. The only error Deliver returns is a malformed target URL, which
// is a caller bug rather than a delivery failure.
type Deliverer struct {
	config Config
	policy *retry.Policy
}

func NewDeliverer(opts ...Option) *Deliverer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	policy := retry.MustNewPolicy("webhook.deliver",
		retry.WithMaxAttempts(config.MaxAttempts),
		retry.WithBackoff(config.Delay),
		retry.WithRetryOnErrorPredicate(retryableStatus),
	)

	return &Deliverer{
		config: config,
		policy: policy,
	}
}

func (d *Deliverer) Deliver(ctx context.Context, target string, payload []byte) (bool, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false, fmt.Errorf("webhook: invalid target url %q", target)
	}

	err = retry.Do(ctx, d.policy, func(ctx context.Context) error {
		return d.attempt(ctx, target, payload)
	})
	if err == nil {
		return true, nil
	}

	fields := []zap.Field{
		zap.String("url", target),
		zap.Error(err),
	}
	if retryErr, ok := retry.AsRetryError(err); ok {
		fields = append(fields, zap.Int("attempts", retryErr.AttemptCount()))
	}
	d.config.Logger.Warn("webhook delivery failed", fields...)

	return false, nil
}

func (d *Deliverer) attempt(ctx context.Context, target string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if d.config.Secret != "" {
		req.Header.Set(d.config.SignatureHeader, signaturePrefix+Sign(payload, d.config.Secret))
	}

	resp, err := d.config.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	return nil
}
