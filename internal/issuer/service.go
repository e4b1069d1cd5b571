// Package issuer mints signed check-in credentials and registers the tickets
// they belong to. It holds the only reference to the signing key; validation
// runs elsewhere with nothing but the public key.
package issuer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/credential"
	ticketmetrics "gatekeeper/internal/ticket/metrics"
	"gatekeeper/internal/ticket/models"
	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// TicketStore is the slice of the ledger the issuer writes through.
type TicketStore interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error)
	Cancel(ctx context.Context, ticketID id.TicketID, at time.Time) (*models.Ticket, error)
}

// Signer mints the credential artifact.
type Signer interface {
	Sign(claims credential.Claims) (string, error)
}

// AuditPublisher receives the issuance trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates registration and credential issuance.
type Service struct {
	store   TicketStore
	signer  Signer
	logger  *slog.Logger
	audit   AuditPublisher
	metrics *ticketmetrics.Metrics

	// newNonce is swappable so tests can force collisions and failures.
	newNonce func() (id.Nonce, error)
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *ticketmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNonceSource(fn func() (id.Nonce, error)) Option {
	return func(s *Service) {
		s.newNonce = fn
	}
}

func New(store TicketStore, signer Signer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		signer:   signer,
		newNonce: credential.NewNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue mints a signed credential for a ticket identity. Side-effect-free
// with respect to durable state: every call generates a fresh nonce, and it
// is the caller's job to persist exactly one of them into a check-in record.
// Two calls with the same inputs yield two distinct credentials; the ledger's
// uniqueness constraint stops both from being stored.
func (s *Service) Issue(ctx context.Context, ticketID id.TicketID, eventID id.EventID) (string, id.Nonce, error) {
	if ticketID.IsNil() {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "ticket ID required")
	}
	if eventID.IsNil() {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "event ID required")
	}

	nonce, err := s.newNonce()
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}

	signed, err := s.mint(ticketID, eventID, nonce, requestcontext.Now(ctx).UTC())
	if err != nil {
		return "", "", err
	}
	return signed, nonce, nil
}

// Register creates the ticket and mints its first credential in one step.
// The nonce Issue generates becomes the ticket's live nonce; nothing else
// ever links artifact to record.
func (s *Service) Register(ctx context.Context, attendeeID id.AttendeeID, eventID id.EventID, status models.Status) (*models.Ticket, string, error) {
	start := time.Now()

	if attendeeID.IsNil() {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "attendee ID required")
	}
	if eventID.IsNil() {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "event ID required")
	}

	ticketID := id.TicketID(uuid.New())
	signed, nonce, err := s.Issue(ctx, ticketID, eventID)
	if err != nil {
		return nil, "", err
	}

	now := requestcontext.Now(ctx).UTC()
	ticket, err := models.New(ticketID, attendeeID, eventID, status, nonce, now)
	if err != nil {
		return nil, "", err
	}

	if err := s.store.Create(ctx, ticket); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "attendee already has a ticket for this event")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ticket")
	}

	s.emitAudit(ctx, audit.Event{
		Type:       audit.EventTicketIssued,
		TicketID:   ticket.ID,
		AttendeeID: ticket.AttendeeID,
		EventID:    ticket.EventID,
		Outcome:    string(ticket.Status),
	})
	if s.metrics != nil {
		s.metrics.IncrementTicketsIssued()
		s.metrics.ObserveIssue(start)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "ticket issued",
			"ticket_id", ticket.ID.String(),
			"event_id", ticket.EventID.String(),
			"status", string(ticket.Status),
		)
	}

	return ticket, signed, nil
}

// Get returns a ticket by ID for operator lookups.
func (s *Service) Get(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error) {
	if ticketID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ticket ID required")
	}
	ticket, err := s.store.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ticket not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ticket")
	}
	return ticket, nil
}

// Cancel revokes a ticket that has not yet been used. The live nonce stays
// in place; the gate rejects it through the status check, not nonce removal.
func (s *Service) Cancel(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error) {
	if ticketID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ticket ID required")
	}

	ticket, err := s.store.Cancel(ctx, ticketID, requestcontext.Now(ctx).UTC())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "ticket not found")
		case errors.Is(err, sentinel.ErrPreconditionFailed):
			return nil, dErrors.New(dErrors.CodeConflict, "ticket can no longer be cancelled")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel ticket")
		}
	}

	s.emitAudit(ctx, audit.Event{
		Type:       audit.EventTicketCancelled,
		TicketID:   ticket.ID,
		AttendeeID: ticket.AttendeeID,
		EventID:    ticket.EventID,
	})

	return ticket, nil
}

func (s *Service) mint(ticketID id.TicketID, eventID id.EventID, nonce id.Nonce, issuedAt time.Time) (string, error) {
	claims := credential.Claims{
		Nonce: nonce.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  ticketID.String(),
			Audience: jwt.ClaimStrings{eventID.String()},
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := s.signer.Sign(claims)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}
	return signed, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.OccurredAt = requestcontext.Now(ctx).UTC()
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "type", event.Type, "error", err)
	}
}
