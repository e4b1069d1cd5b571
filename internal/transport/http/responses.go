package httptransport

import (
	"time"

	"gatekeeper/internal/ticket/models"
	"gatekeeper/internal/validator"
)

// TicketResponse is the operator-facing view of a ticket. The nonce never
// leaves the service in any response; it travels only inside the signed
// credential.
type TicketResponse struct {
	ID          string     `json:"id"`
	AttendeeID  string     `json:"attendee_id"`
	EventID     string     `json:"event_id"`
	Status      string     `json:"status"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func fromTicket(t *models.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID.String(),
		AttendeeID:  t.AttendeeID.String(),
		EventID:     t.EventID.String(),
		Status:      string(t.Status),
		CheckInTime: t.CheckInTime,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// RegisterTicketResponse returns the stored record together with the signed
// credential the attendee will present at the gate.
type RegisterTicketResponse struct {
	Ticket     TicketResponse `json:"ticket"`
	Credential string         `json:"credential"`
}

// CheckinResponse carries the three-tier verdict. Result and Message are all
// a gate screen gets; the pipeline's internal reason stays in logs and the
// audit trail so hard rejects cannot be probed for which check failed.
type CheckinResponse struct {
	Result  string          `json:"result"`
	Message string          `json:"message"`
	Ticket  *TicketResponse `json:"ticket,omitempty"`
}

func fromOutcome(o validator.Outcome) CheckinResponse {
	resp := CheckinResponse{
		Result:  string(o.Result),
		Message: o.HumanMessage(),
	}
	// The record travels back only on accept and duplicate, where the
	// presenter has already proven possession of an authentic credential.
	if o.Ticket != nil && o.Result != validator.ResultReject {
		t := fromTicket(o.Ticket)
		resp.Ticket = &t
	}
	return resp
}
