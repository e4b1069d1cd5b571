package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gatekeeper/internal/platform/kafka/producer"
)

// Sink is the persistence contract the publisher writes through. It matches
// the audit store's Append and lets tests swap sinks easily.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// ProducerPort is the slice of the Kafka producer the publisher needs.
type ProducerPort interface {
	ProduceAsync(msg *producer.Message) error
}

// Publisher captures structured audit events. Persistence through the sink is
// the source of truth; the Kafka stream is a best-effort feed for downstream
// consumers (dashboards, fraud monitoring) and never blocks the caller.
type Publisher struct {
	sink     Sink
	producer ProducerPort
	topic    string
	logger   *slog.Logger

	inbox chan Event
	wg    sync.WaitGroup
	once  sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking with the given buffer size.
// Events are persisted by a background worker; a full buffer drops the
// event rather than stalling a gate scan.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// WithProducer streams every emitted event to the given Kafka topic.
func WithProducer(prod ProducerPort, topic string) Option {
	return func(p *Publisher) {
		p.producer = prod
		p.topic = topic
	}
}

// NewPublisher creates an audit publisher. Synchronous by default; pass
// WithAsyncBuffer for non-blocking emission.
func NewPublisher(sink Sink, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event. Zero-valued ID, category and timestamp are
// filled in here so call sites only state what happened.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Category == "" {
		event.Category = event.Type.Category()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	p.stream(event)

	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, dropping event", "type", event.Type)
			}
		}
		return nil
	}
	return p.sink.Append(ctx, event)
}

// stream publishes the event to Kafka when a producer is wired.
func (p *Publisher) stream(event Event) {
	if p.producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("marshal audit event", "error", err)
		}
		return
	}
	msg := &producer.Message{
		Topic: p.topic,
		Key:   []byte(event.TicketID.String()),
		Value: payload,
		Headers: map[string]string{
			"category": string(event.Category),
		},
	}
	if err := p.producer.ProduceAsync(msg); err != nil && p.logger != nil {
		p.logger.Warn("audit stream publish failed", "error", err)
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.sink.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("persist audit event", "type", event.Type, "error", err)
		}
	}
}

// Close stops the background worker after persisting everything buffered.
// Safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
