package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gatekeeper/internal/ticket/models"
	id "gatekeeper/pkg/domain"
	"gatekeeper/pkg/platform/sentinel"
)

// InMemory stores tickets in memory for unit tests and the demo environment.
// A single RWMutex stands in for the database's per-record atomicity; the
// conditional transition runs entirely under the write lock.
type InMemory struct {
	mu       sync.RWMutex
	tickets  map[id.TicketID]*models.Ticket
	nonceIdx map[id.Nonce]id.TicketID
	pairIdx  map[string]id.TicketID
}

// NewInMemory creates an in-memory ticket ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		tickets:  make(map[id.TicketID]*models.Ticket),
		nonceIdx: make(map[id.Nonce]id.TicketID),
		pairIdx:  make(map[string]id.TicketID),
	}
}

func pairKey(attendee id.AttendeeID, event id.EventID) string {
	return attendee.String() + "/" + event.String()
}

// Create inserts the ticket if neither the (attendee, event) pair nor the
// nonce is already taken.
func (s *InMemory) Create(_ context.Context, t *models.Ticket) error {
	if t == nil {
		return fmt.Errorf("ticket is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(t.AttendeeID, t.EventID)
	if _, exists := s.pairIdx[key]; exists {
		return fmt.Errorf("attendee already has a ticket for this event: %w", sentinel.ErrConflict)
	}
	if _, exists := s.nonceIdx[t.CurrentNonce]; exists {
		return fmt.Errorf("nonce already in use: %w", sentinel.ErrConflict)
	}

	cp := *t
	s.tickets[t.ID] = &cp
	s.nonceIdx[t.CurrentNonce] = t.ID
	s.pairIdx[key] = t.ID
	return nil
}

// FindByNonce resolves a live or spent nonce to its ticket. A nonce that was
// never persisted resolves to nothing.
func (s *InMemory) FindByNonce(_ context.Context, nonce id.Nonce) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticketID, ok := s.nonceIdx[nonce]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.tickets[ticketID]
	return &cp, nil
}

// FindByID retrieves a ticket by its UUID.
func (s *InMemory) FindByID(_ context.Context, ticketID id.TicketID) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// CheckIn performs the conditional transition under the write lock. The
// expectedStatus comparison and the mutation are a single critical section,
// matching the atomicity the postgres store gets from a conditional UPDATE.
func (s *InMemory) CheckIn(_ context.Context, ticketID id.TicketID, expectedStatus models.Status, newNonce id.Nonce, at time.Time) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if t.Status != expectedStatus {
		return nil, sentinel.ErrPreconditionFailed
	}
	if _, taken := s.nonceIdx[newNonce]; taken {
		return nil, fmt.Errorf("replacement nonce already in use: %w", sentinel.ErrConflict)
	}

	if err := t.CheckIn(at, newNonce); err != nil {
		return nil, err
	}
	// The spent nonce stays indexed: a replayed artifact must resolve to
	// this record and be classified by its checked_in status, not vanish.
	s.nonceIdx[newNonce] = ticketID

	cp := *t
	return &cp, nil
}

// Cancel transitions the ticket to cancelled (administrative path).
func (s *InMemory) Cancel(_ context.Context, ticketID id.TicketID, at time.Time) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if t.Status != models.StatusRegistered && t.Status != models.StatusWaitlisted {
		return nil, sentinel.ErrPreconditionFailed
	}
	if err := t.Cancel(at); err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

var _ Store = (*InMemory)(nil)
