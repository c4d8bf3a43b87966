package adapter

import (
	"fmt"
	"sync"
)

// Registry holds the live adapter per integration id. Registering an id at
// most once keeps the invariant of one circuit breaker and one health window
// per integration.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]*Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]*Adapter),
	}
}

func (r *Registry) Register(a *Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[a.ID()]; exists {
		return fmt.Errorf("adapter: integration %q already registered", a.ID())
	}
	r.adapters[a.ID()] = a
	return nil
}

func (r *Registry) Get(id string) (*Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[id]
	return a, ok
}

// Remove unregisters and closes the adapter. Removing an unknown id is a
// no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	a, ok := r.adapters[id]
	delete(r.adapters, id)
	r.mu.Unlock()

	if ok {
		a.Close()
	}
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}

// HealthReport snapshots every registered integration for dashboards.
func (r *Registry) HealthReport() map[string]Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := make(map[string]Metrics, len(r.adapters))
	for id, a := range r.adapters {
		report[id] = a.HealthMetrics()
	}
	return report
}
