// Package validator authenticates presented credentials and performs the one
// state transition that constitutes check-in. It holds only the public
// verification key and never trusts credential claims beyond signature and
// audience; state truth lives in the ledger.
package validator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/credential"
	ticketmetrics "gatekeeper/internal/ticket/metrics"
	"gatekeeper/internal/ticket/models"
	"gatekeeper/internal/validator/tracer"
	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// TicketStore is the slice of the ledger the validator needs.
//
//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks
type TicketStore interface {
	FindByNonce(ctx context.Context, nonce id.Nonce) (*models.Ticket, error)
	FindByID(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error)
	CheckIn(ctx context.Context, ticketID id.TicketID, expectedStatus models.Status, newNonce id.Nonce, at time.Time) (*models.Ticket, error)
}

// Verifier authenticates the credential artifact.
type Verifier interface {
	Verify(tokenString string) (*credential.Claims, error)
}

// AuditPublisher receives the validation trail. Every attempt is recorded,
// accepted or not.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the validation pipeline. Stateless across calls; any number
// of instances can validate concurrently against the same ledger.
type Service struct {
	store    TicketStore
	verifier Verifier
	logger   *slog.Logger
	audit    AuditPublisher
	metrics  *ticketmetrics.Metrics
	tracer   tracer.Tracer

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

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithNonceSource(fn func() (id.Nonce, error)) Option {
	return func(s *Service) {
		s.newNonce = fn
	}
}

func New(store TicketStore, verifier Verifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		verifier: verifier,
		tracer:   tracer.NewNoop(),
		newNonce: credential.NewNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs the pipeline in strict order, short-circuiting on the first
// failure:
//
//  1. signature (no ledger access on failure)
//  2. audience equality
//  3. nonce lookup
//  4. status precheck
//  5. atomic compare-and-transition
//
// Rejections and duplicates are outcomes, not errors. The error return is
// reserved for transient infrastructure failures (CodeUnavailable), which
// the gate should retry rather than show a verdict for.
func (s *Service) Validate(ctx context.Context, presented string, eventID id.EventID) (Outcome, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanValidate,
		tracer.String(tracer.AttrEventID, eventID.String()),
		tracer.String(tracer.AttrGateID, requestcontext.GateID(ctx).String()),
	)

	outcome, err := s.pipeline(ctx, span, presented, eventID)

	span.SetAttributes(
		tracer.String(tracer.AttrOutcome, string(outcome.Result)),
		tracer.String(tracer.AttrReason, string(outcome.Reason)),
	)
	span.End(err)
	if s.metrics != nil {
		s.metrics.ObserveValidate(start)
		if err == nil {
			s.metrics.IncrementCheckinOutcome(string(outcome.Result), string(outcome.Reason))
		}
	}
	if err == nil {
		s.record(ctx, outcome, eventID)
	}
	return outcome, err
}

func (s *Service) pipeline(ctx context.Context, span tracer.Span, presented string, eventID id.EventID) (Outcome, error) {
	// Step 1: signature. Fail fast and cheap, no ledger traffic for garbage.
	claims, err := s.verifier.Verify(presented)
	if err != nil {
		return Outcome{Result: ResultReject, Reason: ReasonForged}, nil
	}

	// Step 2: audience. The claim is inside the signed payload, so after
	// step 1 it is authentic, but a real credential for the wrong event
	// must still bounce.
	credEventID, err := claims.EventID()
	if err != nil || credEventID != eventID {
		return Outcome{Result: ResultReject, Reason: ReasonWrongAudience}, nil
	}

	// Step 3: existence. A live nonce resolves to its record; a spent one
	// resolves to the checked_in record that consumed it, so a replay is
	// classified as duplicate below instead of bouncing as unknown. Only a
	// nonce the ledger never minted resolves to nothing.
	ticket, err := s.store.FindByNonce(ctx, id.Nonce(claims.Nonce))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Outcome{Result: ResultReject, Reason: ReasonUnknown}, nil
		}
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger lookup failed")
	}

	// The record found by nonce must be the record the credential names.
	ticketID, err := claims.TicketID()
	if err != nil || ticket.ID != ticketID || ticket.EventID != eventID {
		return Outcome{Result: ResultReject, Reason: ReasonUnknown}, nil
	}

	// Step 4: status precheck. Friendly classification before the write.
	switch ticket.Status {
	case models.StatusCheckedIn:
		return Outcome{Result: ResultDuplicate, Reason: ReasonDuplicate, Ticket: ticket}, nil
	case models.StatusRegistered:
		// fall through to the transition
	default:
		return Outcome{Result: ResultReject, Reason: ReasonInvalidStatus, Ticket: ticket}, nil
	}

	// Step 5: the atomic compare-and-transition. The precheck above is
	// advisory only; this conditional write is what makes check-in happen
	// at most once under concurrency.
	newNonce, err := s.newNonce()
	if err != nil {
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to generate replacement nonce")
	}

	updated, err := s.store.CheckIn(ctx, ticket.ID, models.StatusRegistered, newNonce, requestcontext.Now(ctx).UTC())
	if err == nil {
		return Outcome{Result: ResultAccept, Ticket: updated}, nil
	}

	switch {
	case errors.Is(err, sentinel.ErrPreconditionFailed):
		// Lost the race. Re-read and report what actually happened; the
		// loser of a double scan sees duplicate, never an internal error.
		span.AddEvent(tracer.EventCASLost, tracer.String(tracer.AttrTicketID, ticket.ID.String()))
		return s.classifyAfterLostRace(ctx, ticket.ID)
	case errors.Is(err, sentinel.ErrNotFound):
		return Outcome{Result: ResultReject, Reason: ReasonUnknown}, nil
	default:
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "check-in transition failed")
	}
}

// classifyAfterLostRace resolves a failed compare-and-transition into a
// verdict by reading the state that beat us to the write.
func (s *Service) classifyAfterLostRace(ctx context.Context, ticketID id.TicketID) (Outcome, error) {
	current, err := s.store.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Outcome{Result: ResultReject, Reason: ReasonUnknown}, nil
		}
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger re-read failed")
	}
	if current.Status == models.StatusCheckedIn {
		return Outcome{Result: ResultDuplicate, Reason: ReasonDuplicate, Ticket: current}, nil
	}
	return Outcome{Result: ResultReject, Reason: ReasonInvalidStatus, Ticket: current}, nil
}

// record writes the attempt to the audit trail and the log.
func (s *Service) record(ctx context.Context, outcome Outcome, eventID id.EventID) {
	eventType := audit.EventCheckinRejected
	switch outcome.Result {
	case ResultAccept:
		eventType = audit.EventCheckinAccepted
	case ResultDuplicate:
		eventType = audit.EventCheckinDuplicate
	}

	event := audit.Event{
		Type:       eventType,
		EventID:    eventID,
		GateID:     requestcontext.GateID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Outcome:    string(outcome.Result),
		Reason:     string(outcome.Reason),
		OccurredAt: requestcontext.Now(ctx).UTC(),
	}
	if outcome.Ticket != nil {
		event.TicketID = outcome.Ticket.ID
		event.AttendeeID = outcome.Ticket.AttendeeID
	}
	if s.audit != nil {
		if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "audit emit failed", "type", event.Type, "error", err)
		}
	}

	if s.logger == nil {
		return
	}
	attrs := []any{
		"outcome", string(outcome.Result),
		"reason", string(outcome.Reason),
		"event_id", eventID.String(),
		"gate_id", requestcontext.GateID(ctx).String(),
	}
	if outcome.Ticket != nil {
		attrs = append(attrs, "ticket_id", outcome.Ticket.ID.String())
	}
	switch outcome.Result {
	case ResultAccept:
		s.logger.InfoContext(ctx, "check-in accepted", attrs...)
	case ResultDuplicate:
		s.logger.InfoContext(ctx, "duplicate check-in attempt", attrs...)
	default:
		s.logger.WarnContext(ctx, "credential rejected", attrs...)
	}
}
