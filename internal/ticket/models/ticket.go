package models

import (
	"time"

	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Status is the admission state of one attendee for one event.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusWaitlisted Status = "waitlisted"
	StatusCheckedIn  Status = "checked_in"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a raw status string from a trust boundary.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusRegistered, StatusWaitlisted, StatusCheckedIn, StatusCancelled:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown ticket status: "+s)
}

// Ticket is the durable check-in record. Authoritative state lives in the
// ledger store; a credential's claims only matter insofar as they agree with
// the ticket found by nonce.
//
// CurrentNonce is the only nonce that can admit this ticket. Check-in
// rotates it to a fresh value that is never handed out, so the presented
// artifact can never produce a second accept. The spent nonce is kept in
// ConsumedNonce so a replayed artifact still resolves to its record and gets
// the calm already-checked-in verdict instead of looking like a forgery.
type Ticket struct {
	ID            id.TicketID   `json:"id"`
	AttendeeID    id.AttendeeID `json:"attendee_id"`
	EventID       id.EventID    `json:"event_id"`
	Status        Status        `json:"status"`
	CurrentNonce  id.Nonce      `json:"-"`
	ConsumedNonce id.Nonce      `json:"-"`
	CheckInTime   *time.Time    `json:"check_in_time,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// New constructs a ticket in its initial state with a fresh nonce.
// initial must be registered or waitlisted; the other states are only ever
// reached through transitions.
func New(ticketID id.TicketID, attendee id.AttendeeID, event id.EventID, initial Status, nonce id.Nonce, now time.Time) (*Ticket, error) {
	if attendee.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ticket requires an attendee")
	}
	if event.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ticket requires an event")
	}
	if nonce.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ticket requires a nonce")
	}
	if initial != StatusRegistered && initial != StatusWaitlisted {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "initial status must be registered or waitlisted")
	}
	return &Ticket{
		ID:           ticketID,
		AttendeeID:   attendee,
		EventID:      event,
		Status:       initial,
		CurrentNonce: nonce,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsCheckedIn reports whether the validation flow has consumed this ticket.
func (t *Ticket) IsCheckedIn() bool {
	return t.Status == StatusCheckedIn
}

// CheckIn transitions registered → checked_in, stamps the check-in time and
// rotates the nonce. The registered precondition makes checked_in terminal
// for the validation flow: a second call fails rather than re-stamping.
//
// The memory ledger calls this under its lock; the postgres ledger enforces
// the same precondition inside a conditional UPDATE instead.
func (t *Ticket) CheckIn(now time.Time, newNonce id.Nonce) error {
	if t.Status != StatusRegistered {
		return dErrors.New(dErrors.CodeInvariantViolation, "only registered tickets can check in")
	}
	if newNonce.IsNil() || newNonce == t.CurrentNonce {
		return dErrors.New(dErrors.CodeInvariantViolation, "check-in requires a fresh nonce")
	}
	t.Status = StatusCheckedIn
	t.ConsumedNonce = t.CurrentNonce
	t.CurrentNonce = newNonce
	t.CheckInTime = &now
	t.UpdatedAt = now
	return nil
}

// Cancel transitions registered/waitlisted → cancelled. Cancellation is an
// administrative action outside the validation pipeline; it exists here so
// the invalid_status reject path has a real producer.
func (t *Ticket) Cancel(now time.Time) error {
	if t.Status != StatusRegistered && t.Status != StatusWaitlisted {
		return dErrors.New(dErrors.CodeInvariantViolation, "only registered or waitlisted tickets can be cancelled")
	}
	t.Status = StatusCancelled
	t.UpdatedAt = now
	return nil
}
