package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/ticket/models"
	id "gatekeeper/pkg/domain"
	"gatekeeper/pkg/platform/sentinel"
)

func newTestTicket(t *testing.T, nonce id.Nonce) *models.Ticket {
	t.Helper()
	ticket, err := models.New(
		id.TicketID(uuid.New()),
		id.AttendeeID(uuid.New()),
		id.EventID(uuid.New()),
		models.StatusRegistered,
		nonce,
		time.Now().UTC(),
	)
	require.NoError(t, err)
	return ticket
}

func TestCreate_Success(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	found, err := store.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.AttendeeID, found.AttendeeID)
	assert.Equal(t, models.StatusRegistered, found.Status)
}

func TestCreate_DuplicatePairReturnsConflict(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, first))

	second, err := models.New(
		id.TicketID(uuid.New()),
		first.AttendeeID,
		first.EventID,
		models.StatusRegistered,
		"nonce-b",
		time.Now().UTC(),
	)
	require.NoError(t, err)

	err = store.Create(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestCreate_DuplicateNonceReturnsConflict(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestTicket(t, "shared-nonce")))

	err := store.Create(ctx, newTestTicket(t, "shared-nonce"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestFindByNonce_NotFound(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	_, err := store.FindByNonce(ctx, "never-issued")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindByNonce_ReturnsCopy(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	found, err := store.FindByNonce(ctx, "nonce-a")
	require.NoError(t, err)

	// Mutating the returned value must not leak into the ledger.
	found.Status = models.StatusCancelled

	again, err := store.FindByNonce(ctx, "nonce-a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, again.Status)
}

func TestCheckIn_Success(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	at := time.Now().UTC()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	updated, err := store.CheckIn(ctx, ticket.ID, models.StatusRegistered, "nonce-b", at)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, updated.Status)
	require.NotNil(t, updated.CheckInTime)
	assert.Equal(t, at, *updated.CheckInTime)
}

func TestCheckIn_RotatesNonce(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	_, err := store.CheckIn(ctx, ticket.ID, models.StatusRegistered, "nonce-b", time.Now().UTC())
	require.NoError(t, err)

	// The spent nonce still resolves, but only to a checked_in record.
	spent, err := store.FindByNonce(ctx, "nonce-a")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, spent.ID)
	assert.Equal(t, models.StatusCheckedIn, spent.Status)
	assert.Equal(t, id.Nonce("nonce-a"), spent.ConsumedNonce)

	found, err := store.FindByNonce(ctx, "nonce-b")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, found.ID)
	assert.Equal(t, id.Nonce("nonce-b"), found.CurrentNonce)
}

func TestCheckIn_WrongStatusReturnsPreconditionFailed(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	_, err := store.CheckIn(ctx, ticket.ID, models.StatusRegistered, "nonce-b", time.Now().UTC())
	require.NoError(t, err)

	_, err = store.CheckIn(ctx, ticket.ID, models.StatusRegistered, "nonce-c", time.Now().UTC())
	require.ErrorIs(t, err, sentinel.ErrPreconditionFailed)
}

func TestCheckIn_UnknownTicketReturnsNotFound(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	_, err := store.CheckIn(ctx, id.TicketID(uuid.New()), models.StatusRegistered, "nonce-b", time.Now().UTC())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCheckIn_ConcurrentOnlyOneWins(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	losses := make(chan error, racers)

	for i := 0; i < racers; i++ {
		nonce := id.Nonce("replacement-" + uuid.NewString())
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CheckIn(ctx, ticket.ID, models.StatusRegistered, nonce, time.Now().UTC())
			if err != nil {
				losses <- err
				return
			}
			wins <- struct{}{}
		}()
	}
	wg.Wait()
	close(wins)
	close(losses)

	assert.Len(t, wins, 1)
	for err := range losses {
		assert.ErrorIs(t, err, sentinel.ErrPreconditionFailed)
	}
}

func TestCancel_Success(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	updated, err := store.Cancel(ctx, ticket.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestCancel_CheckedInReturnsPreconditionFailed(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ticket := newTestTicket(t, "nonce-a")
	require.NoError(t, store.Create(ctx, ticket))

	_, err := store.CheckIn(ctx, ticket.ID, models.StatusRegistered, "nonce-b", time.Now().UTC())
	require.NoError(t, err)

	_, err = store.Cancel(ctx, ticket.ID, time.Now().UTC())
	require.ErrorIs(t, err, sentinel.ErrPreconditionFailed)
}
