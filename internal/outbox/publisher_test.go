package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
	"github.com/robertarktes/course-bookings/internal/outbox"
)

// queueStore hands out pending events in order, keeping everything from the
// first failed publish onwards.
type queueStore struct {
	pending []domain.OutboxEvent
}

func (s *queueStore) DrainOutbox(ctx context.Context, limit int, publish func(context.Context, domain.OutboxEvent) error) (int, error) {
	n := 0
	for n < limit && n < len(s.pending) {
		if err := publish(ctx, s.pending[n]); err != nil {
			s.pending = s.pending[n:]
			return n, err
		}
		n++
	}
	s.pending = s.pending[n:]
	return n, nil
}

type recordingBroker struct {
	failOn int
	sent   []amqp.Publishing
	keys   []string
}

func (b *recordingBroker) Publish(_ context.Context, key string, msg amqp.Publishing) error {
	if b.failOn > 0 && len(b.sent)+1 == b.failOn {
		return errors.New("channel closed")
	}
	b.sent = append(b.sent, msg)
	b.keys = append(b.keys, key)
	return nil
}

func events(t *testing.T, n int) []domain.OutboxEvent {
	t.Helper()
	out := make([]domain.OutboxEvent, 0, n)
	for i := 0; i < n; i++ {
		ev, err := domain.NewBookingEvent(domain.EventBookingCreated, domain.NewBooking(uuid.New(), uuid.New(), time.Now()), time.Now())
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, ev)
	}
	return out
}

func TestFlushPublishesEverythingInBatches(t *testing.T) {
	store := &queueStore{pending: events(t, 5)}
	broker := &recordingBroker{}
	p := outbox.NewPublisher(store, broker, observability.NewLogger("panic"), time.Second, 2)

	n, err := p.Flush(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || len(broker.sent) != 5 || len(store.pending) != 0 {
		t.Fatalf("expected 5 published, got n=%d sent=%d pending=%d", n, len(broker.sent), len(store.pending))
	}
	msg := broker.sent[0]
	if msg.MessageId == "" || msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Errorf("unexpected message %+v", msg)
	}
	if broker.keys[0] != domain.EventBookingCreated {
		t.Errorf("expected routing key %s, got %s", domain.EventBookingCreated, broker.keys[0])
	}
}

func TestFlushStopsAtFailure(t *testing.T) {
	store := &queueStore{pending: events(t, 4)}
	broker := &recordingBroker{failOn: 3}
	p := outbox.NewPublisher(store, broker, observability.NewLogger("panic"), time.Second, 10)

	n, err := p.Flush(context.Background())
	if err == nil {
		t.Fatal("expected publish failure")
	}
	if n != 2 || len(store.pending) != 2 {
		t.Errorf("expected 2 published and 2 pending, got n=%d pending=%d", n, len(store.pending))
	}
}
