package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx runs fn in a SERIALIZABLE transaction and commits when fn returns nil.
// A serialization failure from fn or from the commit is reported as
// domain.ErrSerializationFailure.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		if isSerializationFailure(err) {
			return errors.WithSecondaryError(errors.Wrap(domain.ErrSerializationFailure, "tx"), err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return errors.WithSecondaryError(errors.Wrap(domain.ErrSerializationFailure, "commit"), err)
		}
		return errors.Wrap(err, "commit")
	}
	return nil
}

// RunInTx exposes WithTx through the storage ports used by the booking service.
func (r *Repository) RunInTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode
}

// txStore implements domain.Tx on top of one open transaction.
type txStore struct {
	tx pgx.Tx
}
