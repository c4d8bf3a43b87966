package analytics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a single timestamped occurrence for an integration.
type Event struct {
	ID            string
	Name          string
	IntegrationID string
	Timestamp     time.Time
	Properties    map[string]any
}

// Store persists events. Appends arrive from a single tracker goroutine;
// Query may be called concurrently.
type Store interface {
	Append(event Event)
	Query(integrationID string, from, to time.Time) []Event
}

// Report aggregates event counts by name within a time range.
type Report struct {
	IntegrationID string
	From          time.Time
	To            time.Time
	Total         int64
	ByName        map[string]int64
	Dropped       int64
}

type Config struct {
	// BufferSize bounds the in-flight event queue. Track never blocks:
	// when the buffer is full the event is dropped and counted.
	BufferSize int

	Store  Store
	Logger *zap.Logger
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		BufferSize: 1024,
		Logger:     zap.NewNop(),
	}
}

func WithBufferSize(n int) Option {
	return func(c *Config) {
		c.BufferSize = n
	}
}

func WithStore(store Store) Option {
	return func(c *Config) {
		c.Store = store
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Tracker records events without blocking the caller. A single consumer
// goroutine drains the buffer into the store, so slow stores back up the
// buffer rather than request paths.
type Tracker struct {
	config Config

	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	closed  sync.Once
	dropped atomic.Int64
}

func NewTracker(opts ...Option) *Tracker {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Store == nil {
		config.Store = NewMemoryStore()
	}

	t := &Tracker{
		config: config,
		events: make(chan Event, config.BufferSize),
		done:   make(chan struct{}),
	}

	t.wg.Add(1)
	go t.consume()

	return t
}

func (t *Tracker) consume() {
	defer t.wg.Done()

	for {
		select {
		case event := <-t.events:
			t.config.Store.Append(event)
		case <-t.done:
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case event := <-t.events:
					t.config.Store.Append(event)
				default:
					return
				}
			}
		}
	}
}

// Track enqueues an event, filling in ID and Timestamp when absent. It is
// fire-and-forget: after Close, or when the buffer is full, the event is
// dropped and counted.
func (t *Tracker) Track(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-t.done:
		t.dropped.Add(1)
		return
	default:
	}

	select {
	case t.events <- event:
	default:
		t.dropped.Add(1)
		t.config.Logger.Debug("analytics buffer full, dropping event",
			zap.String("event", event.Name),
			zap.String("integration_id", event.IntegrationID),
		)
	}
}

// Dropped returns the number of events lost to backpressure or shutdown.
func (t *Tracker) Dropped() int64 {
	return t.dropped.Load()
}

// Report aggregates stored events for an integration within [from, to].
func (t *Tracker) Report(integrationID string, from, to time.Time) Report {
	events := t.config.Store.Query(integrationID, from, to)

	report := Report{
		IntegrationID: integrationID,
		From:          from,
		To:            to,
		ByName:        make(map[string]int64),
		Dropped:       t.dropped.Load(),
	}

	for _, event := range events {
		report.Total++
		report.ByName[event.Name]++
	}

	return report
}

// Close stops the consumer after draining buffered events.
func (t *Tracker) Close() {
	t.closed.Do(func() {
		close(t.done)
	})
	t.wg.Wait()
}
