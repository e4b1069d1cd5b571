package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/ticket/models"
	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

// IssuerService is the slice of the issuer the transport needs.
type IssuerService interface {
	Register(ctx context.Context, attendeeID id.AttendeeID, eventID id.EventID, status models.Status) (*models.Ticket, string, error)
	Get(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error)
	Cancel(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error)
}

// HandleRegisterTicket handles POST /tickets: create the record and mint the
// credential in one call.
func (h *Handler) HandleRegisterTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterTicketRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	attendeeID, err := req.ParsedAttendeeID()
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "attendee_id must be a UUID"))
		return
	}
	eventID, err := req.ParsedEventID()
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "event_id must be a UUID"))
		return
	}

	ticket, credential, err := h.issuer.Register(ctx, attendeeID, eventID, req.ParsedStatus())
	if err != nil {
		h.logger.WarnContext(ctx, "ticket registration failed",
			"request_id", requestID,
			"attendee_id", attendeeID.String(),
			"event_id", eventID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterTicketResponse{
		Ticket:     fromTicket(ticket),
		Credential: credential,
	})
}

// HandleGetTicket handles GET /tickets/{ticketID} for operator lookups.
func (h *Handler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ticketID, err := id.ParseTicketID(chi.URLParam(r, "ticketID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "ticket id must be a UUID"))
		return
	}

	ticket, err := h.issuer.Get(ctx, ticketID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromTicket(ticket))
}

// HandleCancelTicket handles POST /tickets/{ticketID}/cancel, the
// administrative path that retires a credential before the event.
func (h *Handler) HandleCancelTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ticketID, err := id.ParseTicketID(chi.URLParam(r, "ticketID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "ticket id must be a UUID"))
		return
	}

	ticket, err := h.issuer.Cancel(ctx, ticketID)
	if err != nil {
		h.logger.WarnContext(ctx, "ticket cancellation failed",
			"request_id", requestID,
			"ticket_id", ticketID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromTicket(ticket))
}
