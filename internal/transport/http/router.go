// Package httptransport is the thin HTTP layer. It decodes requests,
// delegates to the issuer and validator services, and translates their
// results into status codes; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatekeeper/internal/platform/health"
	"gatekeeper/internal/platform/middleware"
)

// Handler wires the check-in endpoints to their services.
type Handler struct {
	issuer    IssuerService
	validator ValidatorService
	throttle  ThrottleService
	logger    *slog.Logger
}

type Option func(h *Handler)

// WithThrottle fronts the check-in endpoint with a per-gate scan throttle.
func WithThrottle(throttle ThrottleService) Option {
	return func(h *Handler) {
		h.throttle = throttle
	}
}

// NewHandler constructs the transport handler.
func NewHandler(issuer IssuerService, validator ValidatorService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		issuer:    issuer,
		validator: validator,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the check-in engine's endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tickets", h.HandleRegisterTicket)
	r.Get("/tickets/{ticketID}", h.HandleGetTicket)
	r.Post("/tickets/{ticketID}/cancel", h.HandleCancelTicket)
	r.Post("/checkin", h.HandleCheckin)
}

// NewRouter assembles the full HTTP surface: middleware stack, health probes,
// prometheus metrics and the engine endpoints.
func NewRouter(h *Handler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.GateMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Timeout(30 * time.Second))

	if healthHandler != nil {
		healthHandler.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	h.Register(r)
	return r
}
