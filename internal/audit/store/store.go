// Package store persists the audit trail. The trail is append-only; nothing
// in the system updates or deletes an audit record once written.
package store

import (
	"context"

	"gatekeeper/internal/audit"
	id "gatekeeper/pkg/domain"
)

// Store is the append-only audit sink.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListByTicket(ctx context.Context, ticketID id.TicketID) ([]audit.Event, error)
}
