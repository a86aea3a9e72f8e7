package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/course-bookings/internal/audit"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

type ackRecorder struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type memorySink struct {
	seen map[uuid.UUID]bool
	err  error
}

func (s *memorySink) LogBookingEvent(_ context.Context, ev domain.BookingEvent) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen[ev.EventID] {
		return false, nil
	}
	s.seen[ev.EventID] = true
	return true, nil
}

func delivery(t *testing.T, acks *ackRecorder, tag uint64, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: acks, DeliveryTag: tag, Body: body, Type: domain.EventBookingCreated}
}

func eventBody(t *testing.T) []byte {
	t.Helper()
	ev, err := domain.NewBookingEvent(domain.EventBookingCreated, domain.NewBooking(uuid.New(), uuid.New(), time.Now()), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return ev.Payload
}

func TestConsumer_AcksRecordedAndDuplicateEvents(t *testing.T) {
	acks := &ackRecorder{}
	sink := &memorySink{seen: map[uuid.UUID]bool{}}
	c := audit.NewConsumer(sink, observability.NewLogger("panic"))
	body := eventBody(t)

	c.Handle(context.Background(), delivery(t, acks, 1, body))
	c.Handle(context.Background(), delivery(t, acks, 2, body))

	if len(acks.acked) != 2 || len(acks.nacked) != 0 {
		t.Fatalf("expected both deliveries acked, got acked=%v nacked=%v", acks.acked, acks.nacked)
	}
	if len(sink.seen) != 1 {
		t.Errorf("expected one stored event, got %d", len(sink.seen))
	}
}

func TestConsumer_Nacks(t *testing.T) {
	acks := &ackRecorder{}
	c := audit.NewConsumer(&memorySink{err: errors.New("mongo down")}, observability.NewLogger("panic"))

	c.Handle(context.Background(), delivery(t, acks, 1, []byte("not json")))
	c.Handle(context.Background(), delivery(t, acks, 2, eventBody(t)))

	if len(acks.nacked) != 2 || len(acks.acked) != 0 {
		t.Fatalf("expected two nacks, got acked=%v nacked=%v", acks.acked, acks.nacked)
	}
	if acks.requeue[0] {
		t.Error("expected malformed payload to be dropped")
	}
	if !acks.requeue[1] {
		t.Error("expected storage failure to requeue")
	}
}

func TestConsumer_RunStopsWhenChannelCloses(t *testing.T) {
	acks := &ackRecorder{}
	sink := &memorySink{seen: map[uuid.UUID]bool{}}
	c := audit.NewConsumer(sink, observability.NewLogger("panic"))

	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- delivery(t, acks, 1, eventBody(t))
	close(deliveries)

	err := c.Run(context.Background(), deliveries)
	if !errors.Is(err, audit.ErrDeliveriesClosed) {
		t.Fatalf("expected closed channel error, got %v", err)
	}
	if len(acks.acked) != 1 {
		t.Errorf("expected the buffered delivery to be handled, got %v", acks.acked)
	}
}
