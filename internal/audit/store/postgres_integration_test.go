//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/audit/store"
	id "gatekeeper/pkg/domain"
	"gatekeeper/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.Postgres
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.pg = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresAuditSuite) newEvent(ticketID id.TicketID, eventType audit.EventType, at time.Time) audit.Event {
	return audit.Event{
		ID:         uuid.New(),
		Type:       eventType,
		Category:   eventType.Category(),
		TicketID:   ticketID,
		AttendeeID: id.AttendeeID(uuid.New()),
		EventID:    id.EventID(uuid.New()),
		GateID:     "gate-a-1",
		ClientIP:   "10.0.0.7",
		RequestID:  uuid.NewString(),
		Outcome:    "accept",
		OccurredAt: at,
	}
}

func (s *PostgresAuditSuite) TestAppendAndListRoundTrip() {
	ctx := context.Background()
	ticketID := id.TicketID(uuid.New())
	at := time.Now().UTC().Truncate(time.Microsecond)

	want := s.newEvent(ticketID, audit.EventCheckinAccepted, at)
	s.Require().NoError(s.store.Append(ctx, want))

	got, err := s.store.ListByTicket(ctx, ticketID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(want.ID, got[0].ID)
	s.Equal(audit.EventCheckinAccepted, got[0].Type)
	s.Equal(audit.CategoryOperations, got[0].Category)
	s.Equal(want.GateID, got[0].GateID)
	s.Equal(want.ClientIP, got[0].ClientIP)
	s.WithinDuration(at, got[0].OccurredAt, time.Millisecond)
}

func (s *PostgresAuditSuite) TestListOrdersOldestFirst() {
	ctx := context.Background()
	ticketID := id.TicketID(uuid.New())
	base := time.Now().UTC().Truncate(time.Microsecond)

	later := s.newEvent(ticketID, audit.EventCheckinDuplicate, base.Add(time.Minute))
	earlier := s.newEvent(ticketID, audit.EventTicketIssued, base)
	s.Require().NoError(s.store.Append(ctx, later))
	s.Require().NoError(s.store.Append(ctx, earlier))

	got, err := s.store.ListByTicket(ctx, ticketID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(audit.EventTicketIssued, got[0].Type)
	s.Equal(audit.EventCheckinDuplicate, got[1].Type)
}

func (s *PostgresAuditSuite) TestListScopedToTicket() {
	ctx := context.Background()
	mine := id.TicketID(uuid.New())
	theirs := id.TicketID(uuid.New())
	at := time.Now().UTC()

	s.Require().NoError(s.store.Append(ctx, s.newEvent(mine, audit.EventTicketIssued, at)))
	s.Require().NoError(s.store.Append(ctx, s.newEvent(theirs, audit.EventTicketIssued, at)))

	got, err := s.store.ListByTicket(ctx, mine)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(mine, got[0].TicketID)
}

func (s *PostgresAuditSuite) TestThrottleEventWithoutTicket() {
	ctx := context.Background()

	event := audit.Event{
		ID:         uuid.New(),
		Type:       audit.EventScanThrottled,
		Category:   audit.CategorySecurity,
		GateID:     "gate-b-3",
		Outcome:    "throttled",
		OccurredAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Append(ctx, event), "events with no ticket reference must still persist")
}
