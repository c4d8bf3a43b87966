package analytics

import (
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an append-only in-memory event store. Events are lost on
// process exit; durable retention belongs to the surrounding application.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *MemoryStore) Query(integrationID string, from, to time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Event
	for _, event := range s.events {
		if event.IntegrationID != integrationID {
			continue
		}
		if event.Timestamp.Before(from) || event.Timestamp.After(to) {
			continue
		}
		matched = append(matched, event)
	}

	return matched
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
