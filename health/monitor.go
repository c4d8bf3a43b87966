package health

import (
	"sync"
	"time"
)

// Monitor keeps rolling request telemetry per integration and condenses it
// into a 0-100 health score. Integrations with no recorded samples report
// the neutral score with Known=false rather than an error.
type Monitor interface {
	Record(integrationID string, success bool, duration time.Duration)
	Score(integrationID string) float64
	Snapshot(integrationID string) Snapshot
}

// Snapshot is the raw counter view backing dashboards.
type Snapshot struct {
	IntegrationID string
	Known         bool

	Requests  int64
	Successes int64
	Failures  int64

	AvgLatency time.Duration
	MaxLatency time.Duration
	LastSeen   time.Time
}

const neutralScore = 50.0

type Config struct {
	// WindowSize bounds the number of samples kept per integration.
	WindowSize int

	// LatencyBudget is the average latency at which the latency component
	// of the score reaches zero.
	LatencyBudget time.Duration

	// StalenessWindow is how long an integration may go without traffic
	// before its score starts decaying toward unknown.
	StalenessWindow time.Duration

	// Component weights. Success rate dominates.
	SuccessWeight float64
	LatencyWeight float64
	RecencyWeight float64
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		WindowSize:      256,
		LatencyBudget:   2 * time.Second,
		StalenessWindow: 10 * time.Minute,
		SuccessWeight:   0.7,
		LatencyWeight:   0.2,
		RecencyWeight:   0.1,
	}
}

func WithWindowSize(n int) Option {
	return func(c *Config) {
		c.WindowSize = n
	}
}

func WithLatencyBudget(d time.Duration) Option {
	return func(c *Config) {
		c.LatencyBudget = d
	}
}

func WithStalenessWindow(d time.Duration) Option {
	return func(c *Config) {
		c.StalenessWindow = d
	}
}

var _ Monitor = (*monitorImpl)(nil)

type sample struct {
	success  bool
	duration time.Duration
	at       time.Time
}

type integrationWindow struct {
	mu sync.Mutex

	samples []sample
	next    int
	filled  bool

	requests  int64
	successes int64
	failures  int64
	lastSeen  time.Time
}

type monitorImpl struct {
	config Config

	mu      sync.RWMutex
	windows map[string]*integrationWindow
}

func NewMonitor(opts ...Option) Monitor {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &monitorImpl{
		config:  config,
		windows: make(map[string]*integrationWindow),
	}
}

func (m *monitorImpl) window(integrationID string) *integrationWindow {
	m.mu.RLock()
	w, ok := m.windows[integrationID]
	m.mu.RUnlock()
	if ok {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[integrationID]; ok {
		return w
	}

	w = &integrationWindow{
		samples: make([]sample, m.config.WindowSize),
	}
	m.windows[integrationID] = w
	return w
}

func (m *monitorImpl) Record(integrationID string, success bool, duration time.Duration) {
	w := m.window(integrationID)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = sample{success: success, duration: duration, at: time.Now()}
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.filled = true
	}

	w.requests++
	if success {
		w.successes++
	} else {
		w.failures++
	}
	w.lastSeen = time.Now()
}

func (w *integrationWindow) activeSamples() []sample {
	if w.filled {
		return w.samples
	}
	return w.samples[:w.next]
}

func (m *monitorImpl) Score(integrationID string) float64 {
	m.mu.RLock()
	w, ok := m.windows[integrationID]
	m.mu.RUnlock()
	if !ok {
		return neutralScore
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	active := w.activeSamples()
	if len(active) == 0 {
		return neutralScore
	}

	var (
		successes int
		total     time.Duration
		max       time.Duration
	)
	for _, s := range active {
		if s.success {
			successes++
		}
		total += s.duration
		if s.duration > max {
			max = s.duration
		}
	}

	successRate := float64(successes) / float64(len(active))

	// Average latency weighted toward the worst sample, so a single slow
	// outlier drags the score before the average moves.
	avg := total / time.Duration(len(active))
	effective := (avg + max) / 2
	latencyFactor := 1.0 - float64(effective)/float64(m.config.LatencyBudget)
	if latencyFactor < 0 {
		latencyFactor = 0
	}

	recency := 1.0
	if idle := time.Since(w.lastSeen); idle > m.config.StalenessWindow {
		recency = float64(m.config.StalenessWindow) / float64(idle)
	}

	score := 100 * (m.config.SuccessWeight*successRate +
		m.config.LatencyWeight*latencyFactor +
		m.config.RecencyWeight*recency)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func (m *monitorImpl) Snapshot(integrationID string) Snapshot {
	snapshot := Snapshot{IntegrationID: integrationID}

	m.mu.RLock()
	w, ok := m.windows[integrationID]
	m.mu.RUnlock()
	if !ok {
		return snapshot
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	active := w.activeSamples()
	if len(active) == 0 {
		return snapshot
	}

	var total time.Duration
	for _, s := range active {
		total += s.duration
		if s.duration > snapshot.MaxLatency {
			snapshot.MaxLatency = s.duration
		}
	}

	snapshot.Known = true
	snapshot.Requests = w.requests
	snapshot.Successes = w.successes
	snapshot.Failures = w.failures
	snapshot.AvgLatency = total / time.Duration(len(active))
	snapshot.LastSeen = w.lastSeen
	return snapshot
}
