// Package audit captures the structured trail of issuance and check-in
// activity. Every validation attempt leaves a record, accepted or not, so
// gate disputes can be reconstructed after the event.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "gatekeeper/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with contractual significance for the
	// event organizer, such as issuance and cancellation of admission rights.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to fraud monitoring:
	// rejected credentials, duplicate presentations, throttled gates.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging and
	// capacity planning, such as accepted check-ins.
	CategoryOperations EventCategory = "operations"
)

// EventType names one auditable action.
type EventType string

const (
	EventTicketIssued    EventType = "ticket_issued"
	EventTicketCancelled EventType = "ticket_cancelled"

	EventCheckinAccepted  EventType = "checkin_accepted"
	EventCheckinDuplicate EventType = "checkin_duplicate"
	EventCheckinRejected  EventType = "checkin_rejected"

	EventScanThrottled EventType = "scan_throttled"
)

var eventCategories = map[EventType]EventCategory{
	EventTicketIssued:    CategoryCompliance,
	EventTicketCancelled: CategoryCompliance,

	EventCheckinDuplicate: CategorySecurity,
	EventCheckinRejected:  CategorySecurity,
	EventScanThrottled:    CategorySecurity,

	EventCheckinAccepted: CategoryOperations,
}

// Category returns the EventCategory for this event type.
// Unknown types default to CategoryOperations.
func (e EventType) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID     `json:"id"`
	Type       EventType     `json:"type"`
	Category   EventCategory `json:"category"`
	TicketID   id.TicketID   `json:"ticket_id,omitempty"`
	AttendeeID id.AttendeeID `json:"attendee_id,omitempty"`
	EventID    id.EventID    `json:"event_id,omitempty"`
	GateID     id.GateID     `json:"gate_id,omitempty"`
	ClientIP   string        `json:"client_ip,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	Outcome    string        `json:"outcome,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
