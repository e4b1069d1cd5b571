package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"gatekeeper/internal/audit"
	id "gatekeeper/pkg/domain"
)

// Postgres persists the audit trail in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Append records an event.
func (s *Postgres) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (id, event_type, category, ticket_id, attendee_id, event_id, gate_id, client_ip, request_id, outcome, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		string(event.Category),
		nullUUID(uuid.UUID(event.TicketID)),
		nullUUID(uuid.UUID(event.AttendeeID)),
		nullUUID(uuid.UUID(event.EventID)),
		nullString(event.GateID.String()),
		nullString(event.ClientIP),
		nullString(event.RequestID),
		nullString(event.Outcome),
		nullString(event.Reason),
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByTicket returns all events recorded for one ticket, oldest first.
func (s *Postgres) ListByTicket(ctx context.Context, ticketID id.TicketID) ([]audit.Event, error) {
	query := `
		SELECT id, event_type, category, ticket_id, attendee_id, event_id, gate_id, client_ip, request_id, outcome, reason, occurred_at
		FROM audit_events
		WHERE ticket_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(ticketID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var eventType, category string
		var ticketID, attendeeID, eventID uuid.NullUUID
		var gateID, clientIP, requestID, outcome, reason sql.NullString
		if err := rows.Scan(&e.ID, &eventType, &category, &ticketID, &attendeeID, &eventID, &gateID, &clientIP, &requestID, &outcome, &reason, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = audit.EventType(eventType)
		e.Category = audit.EventCategory(category)
		e.TicketID = id.TicketID(ticketID.UUID)
		e.AttendeeID = id.AttendeeID(attendeeID.UUID)
		e.EventID = id.EventID(eventID.UUID)
		e.GateID = id.GateID(gateID.String)
		e.ClientIP = clientIP.String
		e.RequestID = requestID.String
		e.Outcome = outcome.String
		e.Reason = reason.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*Postgres)(nil)
