package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/course-bookings/internal/domain"
)

// UpsertUser inserts or refreshes a user keyed by email and returns the stored id.
func (r *Repository) UpsertUser(ctx context.Context, u domain.User) (uuid.UUID, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET name = excluded.name, role = excluded.role
		RETURNING id
	`, u.ID, u.Name, u.Email, u.Role).Scan(&id)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "upsert user")
	}
	return id, nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, role, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
