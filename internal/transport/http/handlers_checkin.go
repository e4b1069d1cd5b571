package httptransport

import (
	"context"
	"net/http"

	"gatekeeper/internal/validator"
	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

// ValidatorService runs the validation pipeline for one presented credential.
type ValidatorService interface {
	Validate(ctx context.Context, presented string, eventID id.EventID) (validator.Outcome, error)
}

// ThrottleService caps scan rates per gate in front of the pipeline.
type ThrottleService interface {
	Allow(ctx context.Context, gateID id.GateID) error
}

// HandleCheckin handles POST /checkin. Status codes follow the verdict tiers:
// 200 accept, 409 duplicate, 422 hard reject. Transient failures return 503
// so the gate retries instead of showing a verdict; the throttle returns 429.
func (h *Handler) HandleCheckin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if h.throttle != nil {
		if err := h.throttle.Allow(ctx, requestcontext.GateID(ctx)); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	req, ok := httputil.DecodeAndPrepare[CheckinRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	eventID, err := req.ParsedEventID()
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "event_id must be a UUID"))
		return
	}

	outcome, err := h.validator.Validate(ctx, req.Credential, eventID)
	if err != nil {
		h.logger.ErrorContext(ctx, "validation pipeline failed",
			"request_id", requestID,
			"event_id", eventID.String(),
			"gate_id", requestcontext.GateID(ctx).String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, outcomeStatus(outcome), fromOutcome(outcome))
}

func outcomeStatus(o validator.Outcome) int {
	switch o.Result {
	case validator.ResultAccept:
		return http.StatusOK
	case validator.ResultDuplicate:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
