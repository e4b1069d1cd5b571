package validator

import "gatekeeper/internal/ticket/models"

// Result is the three-way classification of a validation attempt.
type Result string

const (
	// ResultAccept means the ticket transitioned to checked_in in this call.
	ResultAccept Result = "accept"

	// ResultDuplicate is the soft reject: an authentic credential whose
	// ticket is already checked in. Operationally routine (double scans,
	// screenshots), worth a calm operator message rather than an alarm.
	ResultDuplicate Result = "duplicate"

	// ResultReject is the hard reject: forged, stale, wrong event or a
	// ticket in a non-admittable state. Potentially adversarial.
	ResultReject Result = "reject"
)

// Reason identifies which pipeline step failed. Internal only: logs, metrics
// and the audit trail see it, the presenter never does.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonForged        Reason = "forged"
	ReasonWrongAudience Reason = "wrong_audience"
	ReasonUnknown       Reason = "unknown"
	ReasonInvalidStatus Reason = "invalid_status"
	ReasonDuplicate     Reason = "duplicate"
)

// Outcome is the validator's verdict on one presented credential.
type Outcome struct {
	Result Result
	Reason Reason

	// Ticket is the record after the attempt: the updated record on accept,
	// the existing record on duplicate, nil on reject (except invalid_status,
	// where operators need to see the actual state).
	Ticket *models.Ticket
}

// Accepted reports whether this attempt performed the check-in.
func (o Outcome) Accepted() bool {
	return o.Result == ResultAccept
}

// The single external message for hard rejects. One message for all of
// forged, stale, wrong event and bad state, so the response cannot be used
// to probe which check a forgery failed.
const rejectMessage = "Credential not valid for entry. Refer to the help desk."

// HumanMessage returns the text a gate screen may show the presenter.
func (o Outcome) HumanMessage() string {
	switch o.Result {
	case ResultAccept:
		return "Welcome! Check-in complete."
	case ResultDuplicate:
		msg := "Already checked in."
		if o.Ticket != nil && o.Ticket.CheckInTime != nil {
			msg = "Already checked in at " + o.Ticket.CheckInTime.Format("15:04:05") + "."
		}
		return msg
	default:
		return rejectMessage
	}
}
