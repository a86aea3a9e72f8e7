package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/course-bookings/internal/domain"
)

const courseColumns = `id, title, description, image_url, level, category, duration, rating,
	total_seats, available_seats, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*domain.Course, error) {
	var c domain.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &c.Level, &c.Category, &c.Duration, &c.Rating,
		&c.TotalSeats, &c.AvailableSeats, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
}

func (r *Repository) ListCourses(ctx context.Context) ([]domain.Course, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list courses")
	}
	defer rows.Close()

	courses := []domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func (r *Repository) CreateCourse(ctx context.Context, c domain.Course) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO courses (id, title, description, image_url, level, category, duration, rating,
			total_seats, available_seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.Title, c.Description, c.ImageURL, c.Level, c.Category, c.Duration, c.Rating,
		c.TotalSeats, c.AvailableSeats, c.CreatedAt, c.UpdatedAt)
	return errors.Wrap(err, "insert course")
}

// SeatUsage reports every course's ledger next to its live booking count.
func (r *Repository) SeatUsage(ctx context.Context) ([]domain.SeatUsage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.title, c.total_seats, c.available_seats, count(b.id)
		FROM courses c LEFT JOIN bookings b ON b.course_id = c.id
		GROUP BY c.id, c.title, c.total_seats, c.available_seats
		ORDER BY c.id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "seat usage")
	}
	defer rows.Close()

	var usage []domain.SeatUsage
	for rows.Next() {
		var u domain.SeatUsage
		if err := rows.Scan(&u.CourseID, &u.Title, &u.TotalSeats, &u.AvailableSeats, &u.Booked); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func (s *txStore) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return scanCourse(s.tx.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
}

// ReduceSeats decrements in a single conditioned statement so two racing
// transactions cannot both take the last seat.
func (s *txStore) ReduceSeats(ctx context.Context, courseID uuid.UUID, n int) (bool, error) {
	if n <= 0 {
		return false, nil
	}
	result, err := s.tx.Exec(ctx, `
		UPDATE courses SET available_seats = available_seats - $2, updated_at = now()
		WHERE id = $1 AND available_seats >= $2
	`, courseID, n)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (s *txStore) IncreaseSeats(ctx context.Context, courseID uuid.UUID, n int) error {
	if n <= 0 {
		return nil
	}
	result, err := s.tx.Exec(ctx, `
		UPDATE courses SET available_seats = least(total_seats, available_seats + $2), updated_at = now()
		WHERE id = $1
	`, courseID, n)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
