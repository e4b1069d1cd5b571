package issuer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/audit"
	auditstore "gatekeeper/internal/audit/store"
	"gatekeeper/internal/credential"
	"gatekeeper/internal/ticket/models"
	"gatekeeper/internal/ticket/store"
	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

func newTestService(t *testing.T) (*Service, *store.InMemory, *credential.Verifier, *auditstore.InMemory) {
	t.Helper()
	pair, err := credential.GenerateKeyPair("v1")
	require.NoError(t, err)

	ledger := store.NewInMemory()
	sink := auditstore.NewInMemory()
	svc := New(ledger, credential.NewSigner(pair.Private, pair.Version),
		WithAuditPublisher(audit.NewPublisher(sink, nil)),
	)
	return svc, ledger, credential.NewVerifierForKey(pair.Public, pair.Version), sink
}

func TestIssue_FreshNoncePerCall(t *testing.T) {
	svc, _, verifier, _ := newTestService(t)
	ctx := context.Background()

	ticketID := id.TicketID(uuid.New())
	eventID := id.EventID(uuid.New())

	cred1, nonce1, err := svc.Issue(ctx, ticketID, eventID)
	require.NoError(t, err)
	cred2, nonce2, err := svc.Issue(ctx, ticketID, eventID)
	require.NoError(t, err)

	assert.NotEqual(t, nonce1, nonce2, "each issuance must mint a fresh nonce")
	assert.NotEqual(t, cred1, cred2)

	claims, err := verifier.Verify(cred1)
	require.NoError(t, err)
	assert.Equal(t, nonce1.String(), claims.Nonce)
	assert.Equal(t, ticketID.String(), claims.Subject)
}

func TestIssue_NoDurableSideEffects(t *testing.T) {
	svc, ledger, _, _ := newTestService(t)
	ctx := context.Background()

	_, nonce, err := svc.Issue(ctx, id.TicketID(uuid.New()), id.EventID(uuid.New()))
	require.NoError(t, err)

	_, err = ledger.FindByNonce(ctx, nonce)
	assert.Error(t, err, "issue alone must not create a record")
}

func TestRegister_PersistsTicketWithCredentialNonce(t *testing.T) {
	svc, ledger, verifier, sink := newTestService(t)
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	attendeeID := id.AttendeeID(uuid.New())
	eventID := id.EventID(uuid.New())

	ticket, cred, err := svc.Register(ctx, attendeeID, eventID, models.StatusRegistered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, ticket.Status)
	assert.Equal(t, now, ticket.CreatedAt)
	assert.Nil(t, ticket.CheckInTime)

	claims, err := verifier.Verify(cred)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID.String(), claims.Subject)
	assert.Equal(t, ticket.CurrentNonce.String(), claims.Nonce)
	assert.Nil(t, claims.ExpiresAt, "credentials carry no expiry")

	stored, err := ledger.FindByNonce(ctx, ticket.CurrentNonce)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, stored.ID)

	events, err := sink.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTicketIssued, events[0].Type)
}

func TestRegister_DuplicatePairReturnsConflict(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	attendeeID := id.AttendeeID(uuid.New())
	eventID := id.EventID(uuid.New())

	_, _, err := svc.Register(ctx, attendeeID, eventID, models.StatusRegistered)
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, attendeeID, eventID, models.StatusRegistered)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRegister_WaitlistedStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	ticket, cred, err := svc.Register(ctx, id.AttendeeID(uuid.New()), id.EventID(uuid.New()), models.StatusWaitlisted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitlisted, ticket.Status)
	assert.NotEmpty(t, cred, "waitlisted attendees still get a credential")
}

func TestRegister_NilIDsRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, id.AttendeeID{}, id.EventID(uuid.New()), models.StatusRegistered)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, _, err = svc.Register(ctx, id.AttendeeID(uuid.New()), id.EventID{}, models.StatusRegistered)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestRegister_NonceSourceFailure(t *testing.T) {
	pair, err := credential.GenerateKeyPair("v1")
	require.NoError(t, err)

	svc := New(store.NewInMemory(), credential.NewSigner(pair.Private, pair.Version),
		WithNonceSource(func() (id.Nonce, error) {
			return "", errors.New("entropy exhausted")
		}),
	)

	_, _, err = svc.Register(context.Background(), id.AttendeeID(uuid.New()), id.EventID(uuid.New()), models.StatusRegistered)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), id.TicketID(uuid.New()))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCancel_RegisteredTicket(t *testing.T) {
	svc, _, _, sink := newTestService(t)
	ctx := context.Background()

	ticket, _, err := svc.Register(ctx, id.AttendeeID(uuid.New()), id.EventID(uuid.New()), models.StatusRegistered)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	events, err := sink.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventTicketCancelled, events[1].Type)

	_, err = svc.Cancel(ctx, ticket.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}
