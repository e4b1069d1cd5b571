package httptransport_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/audit"
	auditstore "gatekeeper/internal/audit/store"
	"gatekeeper/internal/credential"
	"gatekeeper/internal/issuer"
	"gatekeeper/internal/ticket/models"
	"gatekeeper/internal/ticket/store"
	httptransport "gatekeeper/internal/transport/http"
	"gatekeeper/internal/validator"
	id "gatekeeper/pkg/domain"
	"gatekeeper/pkg/testutil"
)

// Calls HandleCheckin directly, without the router's middleware stack, so the
// request-scoped clock and gate metadata can be pinned and asserted exactly.
func TestHandleCheckin_RecordsGateMetadata(t *testing.T) {
	pair, err := credential.GenerateKeyPair("v1")
	require.NoError(t, err)

	ledger := store.NewInMemory()
	sink := auditstore.NewInMemory()
	pub := audit.NewPublisher(sink, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	iss := issuer.New(ledger, credential.NewSigner(pair.Private, pair.Version))
	val := validator.New(ledger, credential.NewVerifierForKey(pair.Public, pair.Version),
		validator.WithAuditPublisher(pub), validator.WithLogger(logger))
	handler := httptransport.NewHandler(iss, val, logger)

	eventID := id.EventID(uuid.New())
	_, cred, err := iss.Register(context.Background(), id.AttendeeID(uuid.New()), eventID, models.StatusRegistered)
	require.NoError(t, err)

	scanTime := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	testutil.Given(t, "a scan with pinned gate metadata", func(t *testing.T) {
		body, err := json.Marshal(map[string]string{
			"credential": cred,
			"event_id":   eventID.String(),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/checkin", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		req = testutil.WithGate(req, "gate-north-2", "203.0.113.9")
		req = testutil.WithRequestTime(req, scanTime)
		req = testutil.WithRequestID(req, "req-pinned-1")

		testutil.When(t, "the credential is presented", func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleCheckin(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			testutil.Then(t, "the check-in time is the request-scoped instant", func(t *testing.T) {
				var resp struct {
					Ticket struct {
						CheckInTime time.Time `json:"check_in_time"`
					} `json:"ticket"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.Ticket.CheckInTime.Equal(scanTime))
			})

			testutil.Then(t, "the audit trail carries the gate metadata", func(t *testing.T) {
				events := sink.All()
				require.NotEmpty(t, events)
				last := events[len(events)-1]
				assert.Equal(t, audit.EventCheckinAccepted, last.Type)
				assert.Equal(t, id.GateID("gate-north-2"), last.GateID)
				assert.Equal(t, "203.0.113.9", last.ClientIP)
				assert.Equal(t, "req-pinned-1", last.RequestID)
				assert.True(t, last.OccurredAt.Equal(scanTime))
			})
		})
	})
}
