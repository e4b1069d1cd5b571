// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing AttendeeID where EventID is expected.
type (
	TicketID   uuid.UUID
	AttendeeID uuid.UUID
	EventID    uuid.UUID
)

// GateID identifies the physical scanning station presenting credentials.
// It is an operator-assigned string (e.g., "gate-a-2"), not a UUID.
type GateID string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseTicketID(s string) (TicketID, error) {
	id, err := parseUUID(s, "ticket ID")
	return TicketID(id), err
}

func ParseAttendeeID(s string) (AttendeeID, error) {
	id, err := parseUUID(s, "attendee ID")
	return AttendeeID(id), err
}

func ParseEventID(s string) (EventID, error) {
	id, err := parseUUID(s, "event ID")
	return EventID(id), err
}

func ParseGateID(s string) (GateID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "gate ID cannot be empty")
	}
	return GateID(s), nil
}

// String methods - for logging and debugging.

func (id TicketID) String() string   { return uuid.UUID(id).String() }
func (id AttendeeID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id GateID) String() string     { return string(id) }

// Text marshaling - defined types do not inherit uuid.UUID's methods, and
// without these the IDs would JSON-encode as raw byte arrays.

func (id TicketID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id AttendeeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id EventID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *TicketID) UnmarshalText(b []byte) error {
	parsed, err := ParseTicketID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AttendeeID) UnmarshalText(b []byte) error {
	parsed, err := ParseAttendeeID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	parsed, err := ParseEventID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsNil checks - used for service-layer validation.

func (id TicketID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AttendeeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id GateID) IsNil() bool     { return id == "" }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
