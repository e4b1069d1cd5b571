package httptransport

import (
	"strings"

	"gatekeeper/internal/ticket/models"
	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
)

// RegisterTicketRequest is the body of POST /tickets.
type RegisterTicketRequest struct {
	AttendeeID string `json:"attendee_id"`
	EventID    string `json:"event_id"`

	// Status is optional; empty means registered. Waitlisted registrations
	// receive a credential too, it just hard-rejects at the gate until the
	// ticket is promoted.
	Status string `json:"status,omitempty"`
}

func (r *RegisterTicketRequest) Normalize() {
	r.AttendeeID = strings.TrimSpace(r.AttendeeID)
	r.EventID = strings.TrimSpace(r.EventID)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	if r.Status == "" {
		r.Status = string(models.StatusRegistered)
	}
}

func (r *RegisterTicketRequest) Validate() error {
	if r.AttendeeID == "" {
		return dErrors.New(dErrors.CodeValidation, "attendee_id is required")
	}
	if r.EventID == "" {
		return dErrors.New(dErrors.CodeValidation, "event_id is required")
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	if status != models.StatusRegistered && status != models.StatusWaitlisted {
		return dErrors.New(dErrors.CodeValidation, "status must be registered or waitlisted")
	}
	return nil
}

// ParsedAttendeeID returns the attendee UUID, or an error for malformed input.
func (r *RegisterTicketRequest) ParsedAttendeeID() (id.AttendeeID, error) {
	return id.ParseAttendeeID(r.AttendeeID)
}

// ParsedEventID returns the event UUID, or an error for malformed input.
func (r *RegisterTicketRequest) ParsedEventID() (id.EventID, error) {
	return id.ParseEventID(r.EventID)
}

// ParsedStatus returns the initial status; Validate has already constrained it.
func (r *RegisterTicketRequest) ParsedStatus() models.Status {
	return models.Status(r.Status)
}

// CheckinRequest is the body of POST /checkin.
type CheckinRequest struct {
	Credential string `json:"credential"`
	EventID    string `json:"event_id"`
}

func (r *CheckinRequest) Normalize() {
	r.Credential = strings.TrimSpace(r.Credential)
	r.EventID = strings.TrimSpace(r.EventID)
}

func (r *CheckinRequest) Validate() error {
	if r.Credential == "" {
		return dErrors.New(dErrors.CodeValidation, "credential is required")
	}
	if r.EventID == "" {
		return dErrors.New(dErrors.CodeValidation, "event_id is required")
	}
	return nil
}

// ParsedEventID returns the event UUID, or an error for malformed input.
func (r *CheckinRequest) ParsedEventID() (id.EventID, error) {
	return id.ParseEventID(r.EventID)
}
