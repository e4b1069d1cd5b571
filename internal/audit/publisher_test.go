package audit_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/audit/store"
	"gatekeeper/internal/platform/kafka/producer"
	id "gatekeeper/pkg/domain"
)

func TestPublisher_SyncMode(t *testing.T) {
	sink := store.NewInMemory()
	pub := audit.NewPublisher(sink, nil)
	defer pub.Close()

	ticketID := id.TicketID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		Type:     audit.EventTicketIssued,
		TicketID: ticketID,
	})
	require.NoError(t, err)

	events, err := sink.ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTicketIssued, events[0].Type)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].OccurredAt.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	sink := store.NewInMemory()
	pub := audit.NewPublisher(sink, nil, audit.WithAsyncBuffer(10))

	ticketID := id.TicketID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		Type:     audit.EventCheckinAccepted,
		TicketID: ticketID,
	})
	require.NoError(t, err)

	// Close drains the buffer, so everything emitted is persisted after it.
	pub.Close()

	events, err := sink.ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	sink := store.NewInMemory()
	pub := audit.NewPublisher(sink, nil, audit.WithAsyncBuffer(100))

	ticketID := id.TicketID(uuid.New())
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Type:     audit.EventCheckinRejected,
			TicketID: ticketID,
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := sink.ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFullDropsInsteadOfBlocking(t *testing.T) {
	sink := store.NewInMemory()
	pub := audit.NewPublisher(sink, nil, audit.WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = pub.Emit(context.Background(), audit.Event{Type: audit.EventCheckinRejected})
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
}

type capturingProducer struct {
	mu       sync.Mutex
	messages []*producer.Message
}

func (c *capturingProducer) ProduceAsync(msg *producer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

func TestPublisher_StreamsToKafkaTopic(t *testing.T) {
	sink := store.NewInMemory()
	capture := &capturingProducer{}
	pub := audit.NewPublisher(sink, nil, audit.WithProducer(capture, "gatekeeper.audit"))
	defer pub.Close()

	ticketID := id.TicketID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		Type:     audit.EventCheckinDuplicate,
		TicketID: ticketID,
		GateID:   "gate-a-2",
	})
	require.NoError(t, err)

	require.Len(t, capture.messages, 1)
	msg := capture.messages[0]
	assert.Equal(t, "gatekeeper.audit", msg.Topic)
	assert.Equal(t, ticketID.String(), string(msg.Key))
	assert.Equal(t, string(audit.CategorySecurity), msg.Headers["category"])

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, audit.EventCheckinDuplicate, decoded.Type)
}
