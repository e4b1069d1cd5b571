// Package throttle caps how fast a single gate can present credentials,
// shielding the ledger from scan floods and misbehaving scanner hardware.
package throttle

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/throttle/store"
	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

var throttledTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_gate_scans_throttled_total",
	Help: "Number of scans rejected by the per-gate throttle",
})

const defaultWindow = time.Second

// AuditPublisher receives throttle trips for the security trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service enforces a per-gate scans-per-window ceiling in front of the
// validation pipeline.
type Service struct {
	counters store.CounterStore
	limit    int
	window   time.Duration
	logger   *slog.Logger
	audit    AuditPublisher
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

func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// New constructs the throttle. A limit of zero or less disables it.
func New(counters store.CounterStore, limit int, opts ...Option) *Service {
	s := &Service{
		counters: counters,
		limit:    limit,
		window:   defaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow admits or rejects one scan at the given gate. Over-limit scans get
// CodeThrottled, which the transport maps to a retryable response. A counter
// store failure fails open: a throttle outage must not close the gates.
func (s *Service) Allow(ctx context.Context, gateID id.GateID) error {
	if s.limit <= 0 || gateID.IsNil() {
		return nil
	}

	count, err := s.counters.Increment(ctx, gateID.String(), s.window)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "throttle counter unavailable, admitting scan",
				"gate_id", gateID.String(), "error", err)
		}
		return nil
	}
	if count <= int64(s.limit) {
		return nil
	}

	throttledTotal.Inc()
	s.recordTrip(ctx, gateID, count)
	return dErrors.New(dErrors.CodeThrottled, "gate scan rate limit exceeded")
}

func (s *Service) recordTrip(ctx context.Context, gateID id.GateID, count int64) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "gate throttled",
			"gate_id", gateID.String(),
			"count", count,
			"limit", s.limit,
			"window", s.window.String(),
		)
	}
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Type:       audit.EventScanThrottled,
		GateID:     gateID,
		ClientIP:   requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Outcome:    "throttled",
		OccurredAt: requestcontext.Now(ctx).UTC(),
	}
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "type", event.Type, "error", err)
	}
}
