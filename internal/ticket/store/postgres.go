package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"gatekeeper/internal/ticket/models"
	id "gatekeeper/pkg/domain"
	"gatekeeper/pkg/platform/sentinel"
)

// PostgresStore persists tickets in PostgreSQL. The database is the
// synchronization point: both uniqueness invariants are constraints and the
// check-in transition is a single conditional UPDATE, so no in-process lock
// is held across ledger calls and multiple service instances stay correct.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ticket ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the ticket. The tickets_attendee_event_key and
// tickets_current_nonce_key constraints enforce the one-ticket-per-pair and
// global nonce uniqueness invariants.
func (s *PostgresStore) Create(ctx context.Context, t *models.Ticket) error {
	if t == nil {
		return fmt.Errorf("ticket is required")
	}
	query := `
		INSERT INTO tickets (id, attendee_id, event_id, status, current_nonce, consumed_nonce, check_in_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		uuid.UUID(t.AttendeeID),
		uuid.UUID(t.EventID),
		string(t.Status),
		string(t.CurrentNonce),
		nonceOrNull(t.ConsumedNonce),
		t.CheckInTime,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ticket violates uniqueness constraint: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

// FindByNonce resolves a live or spent nonce to its ticket. A spent nonce
// still resolves, only to a record whose checked_in status refuses a second
// entry; only a nonce the ledger never minted resolves to nothing.
func (s *PostgresStore) FindByNonce(ctx context.Context, nonce id.Nonce) (*models.Ticket, error) {
	query := selectTicket + ` WHERE current_nonce = $1 OR consumed_nonce = $1`
	t, err := scanTicket(s.db.QueryRowContext(ctx, query, string(nonce)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find ticket by nonce: %w", err)
	}
	return t, nil
}

// FindByID retrieves a ticket by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error) {
	query := selectTicket + ` WHERE id = $1`
	t, err := scanTicket(s.db.QueryRowContext(ctx, query, uuid.UUID(ticketID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find ticket by id: %w", err)
	}
	return t, nil
}

// CheckIn is the atomic compare-and-transition. The status predicate lives
// inside the UPDATE itself, so when two validations race the database lets
// exactly one row-write through; the loser sees zero rows and gets
// ErrPreconditionFailed, never a partial write.
func (s *PostgresStore) CheckIn(ctx context.Context, ticketID id.TicketID, expectedStatus models.Status, newNonce id.Nonce, at time.Time) (*models.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $3, consumed_nonce = current_nonce, current_nonce = $4, check_in_time = $5, updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING id, attendee_id, event_id, status, current_nonce, consumed_nonce, check_in_time, created_at, updated_at
	`
	t, err := scanTicket(s.db.QueryRowContext(ctx, query,
		uuid.UUID(ticketID),
		string(expectedStatus),
		string(models.StatusCheckedIn),
		string(newNonce),
		at,
	))
	if err == nil {
		return t, nil
	}
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("replacement nonce already in use: %w", sentinel.ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check in ticket: %w", err)
	}

	// Zero rows: either the ticket is gone or its status changed under us.
	if _, findErr := s.FindByID(ctx, ticketID); findErr != nil {
		if errors.Is(findErr, sentinel.ErrNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("check in ticket: %w", findErr)
	}
	return nil, sentinel.ErrPreconditionFailed
}

// Cancel transitions a registered or waitlisted ticket to cancelled.
func (s *PostgresStore) Cancel(ctx context.Context, ticketID id.TicketID, at time.Time) (*models.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING id, attendee_id, event_id, status, current_nonce, consumed_nonce, check_in_time, created_at, updated_at
	`
	t, err := scanTicket(s.db.QueryRowContext(ctx, query,
		uuid.UUID(ticketID),
		string(models.StatusCancelled),
		at,
		string(models.StatusRegistered),
		string(models.StatusWaitlisted),
	))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cancel ticket: %w", err)
	}
	if _, findErr := s.FindByID(ctx, ticketID); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrPreconditionFailed
}

const selectTicket = `
	SELECT id, attendee_id, event_id, status, current_nonce, consumed_nonce, check_in_time, created_at, updated_at
	FROM tickets`

type ticketRow interface {
	Scan(dest ...any) error
}

func scanTicket(row ticketRow) (*models.Ticket, error) {
	var t models.Ticket
	var ticketID, attendeeID, eventID uuid.UUID
	var status, nonce string
	var consumedNonce sql.NullString
	var checkInTime sql.NullTime
	if err := row.Scan(&ticketID, &attendeeID, &eventID, &status, &nonce, &consumedNonce, &checkInTime, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ID = id.TicketID(ticketID)
	t.AttendeeID = id.AttendeeID(attendeeID)
	t.EventID = id.EventID(eventID)
	t.Status = models.Status(status)
	t.CurrentNonce = id.Nonce(nonce)
	t.ConsumedNonce = id.Nonce(consumedNonce.String)
	if checkInTime.Valid {
		at := checkInTime.Time
		t.CheckInTime = &at
	}
	return &t, nil
}

func nonceOrNull(n id.Nonce) sql.NullString {
	return sql.NullString{String: n.String(), Valid: !n.IsNil()}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
