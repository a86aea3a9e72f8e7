package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/course-bookings/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func (s *txStore) InsertEvent(ctx context.Context, ev domain.OutboxEvent) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, created_at, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, 'NEW', $7)
	`, ev.ID, ev.AggregateType, ev.AggregateID, ev.EventType, ev.Payload, ev.CreatedAt, ev.DedupeKey)
	return err
}

func getUnpublishedOutbox(ctx context.Context, tx pgx.Tx, limit int) ([]OutboxRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func markPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, publishedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}

// DrainOutbox claims up to limit NEW events in creation order and hands each to
// publish. Events published before a failure are marked and committed; the
// failing event and everything after it stay NEW for the next run.
func (r *Repository) DrainOutbox(ctx context.Context, limit int, publish func(ctx context.Context, ev domain.OutboxEvent) error) (int, error) {
	var published int
	var publishErr error
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		records, err := getUnpublishedOutbox(ctx, tx, limit)
		if err != nil {
			return errors.Wrap(err, "claim outbox")
		}
		for _, rec := range records {
			ev := domain.OutboxEvent{
				ID:            rec.ID,
				AggregateType: rec.AggregateType,
				AggregateID:   rec.AggregateID,
				EventType:     rec.EventType,
				Payload:       rec.Payload,
				CreatedAt:     rec.CreatedAt,
				DedupeKey:     rec.DedupeKey,
			}
			if err := publish(ctx, ev); err != nil {
				publishErr = errors.Wrapf(err, "publish outbox event %s", rec.ID)
				break
			}
			if err := markPublished(ctx, tx, rec.ID, time.Now().UTC()); err != nil {
				return errors.Wrap(err, "mark published")
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, publishErr
}
