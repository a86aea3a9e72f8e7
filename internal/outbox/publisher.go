// Package outbox relays events committed alongside booking changes to the
// message broker.
package outbox

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

type Store interface {
	DrainOutbox(ctx context.Context, limit int, publish func(ctx context.Context, ev domain.OutboxEvent) error) (int, error)
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	store    Store
	broker   Broker
	logger   observability.Logger
	interval time.Duration
	batch    int
}

func NewPublisher(store Store, broker Broker, logger observability.Logger, interval time.Duration, batch int) *Publisher {
	return &Publisher{store: store, broker: broker, logger: logger, interval: interval, batch: batch}
}

func message(ev domain.OutboxEvent) amqp.Publishing {
	return amqp.Publishing{
		MessageId:    ev.DedupeKey,
		Type:         ev.EventType,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.CreatedAt,
		Body:         ev.Payload,
	}
}

// Flush publishes pending events batch by batch until the outbox is empty or
// a publish fails. It returns how many events were published.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		var lag time.Duration
		n, err := p.store.DrainOutbox(ctx, p.batch, func(ctx context.Context, ev domain.OutboxEvent) error {
			if age := time.Since(ev.CreatedAt); age > lag {
				lag = age
			}
			return p.broker.Publish(ctx, ev.EventType, message(ev))
		})
		total += n
		if n > 0 {
			observability.OutboxLag.Set(lag.Seconds())
		}
		if err != nil {
			observability.OutboxPublishFailures.Inc()
			return total, errors.Wrap(err, "drain outbox")
		}
		if n < p.batch {
			if n == 0 {
				observability.OutboxLag.Set(0)
			}
			return total, nil
		}
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("outbox publisher started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Flush(ctx)
			if err != nil {
				p.logger.WithError(err).WithField("published", n).Error("outbox flush failed")
				continue
			}
			if n > 0 {
				p.logger.WithField("published", n).Debug("outbox flushed")
			}
		}
	}
}
