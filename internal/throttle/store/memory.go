package store

import (
	"context"
	"sync"
	"time"
)

// InMemory implements CounterStore with per-key fixed windows. It serves
// single-instance deployments and tests; a fleet of validators sharing one
// throttle needs the Redis store.
type InMemory struct {
	mu       sync.Mutex
	counters map[string]*windowCounter

	now func() time.Time
}

type windowCounter struct {
	count   int64
	resetAt time.Time
}

// NewInMemory creates an in-memory counter store.
func NewInMemory() *InMemory {
	return &InMemory{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// Increment bumps the counter for key, starting a fresh window when the
// previous one has lapsed.
func (s *InMemory) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &windowCounter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

var _ CounterStore = (*InMemory)(nil)
