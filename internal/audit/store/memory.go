package store

import (
	"context"
	"sync"

	"gatekeeper/internal/audit"
	id "gatekeeper/pkg/domain"
)

// InMemory keeps audit events in memory for unit tests and the demo
// environment.
type InMemory struct {
	mu     sync.RWMutex
	events []audit.Event
}

// NewInMemory creates an in-memory audit store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Append records an event.
func (s *InMemory) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByTicket returns all events recorded for one ticket, oldest first.
func (s *InMemory) ListByTicket(_ context.Context, ticketID id.TicketID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded event. Test helper.
func (s *InMemory) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

var _ Store = (*InMemory)(nil)
