// Package store implements the nonce ledger: the durable, transactional
// record mapping live nonces to check-in records.
//
// The ledger is the single synchronization point for check-in. Issuer and
// validator instances are stateless transactional clients; nothing caches
// authoritative ticket state across calls, because the service runs as
// multiple concurrent instances.
package store

import (
	"context"
	"time"

	"gatekeeper/internal/ticket/models"
	id "gatekeeper/pkg/domain"
)

// Store is the transactional contract the issuance and validation pipelines
// consume. Implementations translate backend facts into sentinel errors:
//
//   - Create: sentinel.ErrConflict when the (attendee, event) pair or the
//     nonce already exists.
//   - FindByNonce / FindByID: sentinel.ErrNotFound when no record resolves.
//   - CheckIn: sentinel.ErrPreconditionFailed when the record's status is no
//     longer expectedStatus at write time. This is the compare-and-swap the
//     whole anti-double-check-in design rests on; it must be a single
//     conditional write, not read-then-write.
type Store interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByNonce(ctx context.Context, nonce id.Nonce) (*models.Ticket, error)
	FindByID(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error)
	CheckIn(ctx context.Context, ticketID id.TicketID, expectedStatus models.Status, newNonce id.Nonce, at time.Time) (*models.Ticket, error)
	Cancel(ctx context.Context, ticketID id.TicketID, at time.Time) (*models.Ticket, error)
}
