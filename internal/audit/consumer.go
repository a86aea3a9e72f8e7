// Package audit writes booking events from the broker into the audit log.
package audit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed")

type Sink interface {
	LogBookingEvent(ctx context.Context, ev domain.BookingEvent) (bool, error)
}

type Consumer struct {
	sink   Sink
	logger observability.Logger
}

func NewConsumer(sink Sink, logger observability.Logger) *Consumer {
	return &Consumer{sink: sink, logger: logger}
}

// Handle acks a delivery once its event is in the audit log, drops malformed
// payloads and requeues on storage failure.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	var ev domain.BookingEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil || ev.EventID == uuid.Nil {
		observability.AuditEventsTotal.WithLabelValues(d.Type, "malformed").Inc()
		c.logger.WithField("message_id", d.MessageId).Warn("dropping malformed booking event")
		d.Nack(false, false)
		return
	}

	log := c.logger.WithField("event_id", ev.EventID.String()).WithField("event_type", ev.EventType)
	recorded, err := c.sink.LogBookingEvent(ctx, ev)
	if err != nil {
		observability.AuditEventsTotal.WithLabelValues(ev.EventType, "failed").Inc()
		log.WithError(err).Error("failed to record booking event")
		d.Nack(false, true)
		return
	}
	outcome := "recorded"
	if !recorded {
		outcome = "duplicate"
	}
	observability.AuditEventsTotal.WithLabelValues(ev.EventType, outcome).Inc()
	log.WithField("outcome", outcome).Debug("booking event consumed")
	d.Ack(false)
}

// Run handles deliveries until ctx is done or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.Handle(ctx, d)
		}
	}
}
