package crdb

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/course-bookings/internal/domain"
)

const bookingColumns = `id, user_id, course_id, created_at, updated_at`

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.CourseID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *txStore) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return scanBooking(s.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

func (s *txStore) FindUserBooking(ctx context.Context, userID, courseID uuid.UUID) (*domain.Booking, error) {
	return scanBooking(s.tx.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND course_id = $2 LIMIT 1
	`, userID, courseID))
}

func (s *txStore) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO bookings (id, user_id, course_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.UserID, b.CourseID, b.CreatedAt, b.UpdatedAt)
	return err
}

func (s *txStore) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	result, err := s.tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const detailQuery = `
	SELECT b.id, b.user_id, b.course_id, b.created_at, b.updated_at,
		u.id, u.name, u.email, u.role, u.created_at,
		c.id, c.title, c.description, c.image_url, c.level, c.category, c.duration, c.rating,
		c.total_seats, c.available_seats, c.created_at, c.updated_at
	FROM bookings b
	LEFT JOIN users u ON u.id = b.user_id
	LEFT JOIN courses c ON c.id = b.course_id`

// Nullable mirrors of the joined columns; users and courses are weak references.
type detailRow struct {
	userID        *uuid.UUID
	userName      *string
	userEmail     *string
	userRole      *string
	userCreated   *time.Time
	courseID      *uuid.UUID
	title         *string
	desc          *string
	image         *string
	level         *string
	category      *string
	duration      *string
	rating        *float64
	total         *int
	available     *int
	courseCreated *time.Time
	courseUpdated *time.Time
}

func scanDetail(row rowScanner) (*domain.BookingDetail, error) {
	var d domain.BookingDetail
	var n detailRow
	err := row.Scan(&d.ID, &d.UserID, &d.CourseID, &d.CreatedAt, &d.UpdatedAt,
		&n.userID, &n.userName, &n.userEmail, &n.userRole, &n.userCreated,
		&n.courseID, &n.title, &n.desc, &n.image, &n.level, &n.category, &n.duration, &n.rating,
		&n.total, &n.available, &n.courseCreated, &n.courseUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if n.userID != nil {
		d.User = &domain.User{
			ID:        *n.userID,
			Name:      deref(n.userName),
			Email:     deref(n.userEmail),
			Role:      deref(n.userRole),
			CreatedAt: derefTime(n.userCreated),
		}
	}
	if n.courseID != nil {
		d.Course = &domain.Course{
			ID:             *n.courseID,
			Title:          deref(n.title),
			Description:    deref(n.desc),
			ImageURL:       deref(n.image),
			Level:          deref(n.level),
			Category:       deref(n.category),
			Duration:       deref(n.duration),
			TotalSeats:     derefInt(n.total),
			AvailableSeats: derefInt(n.available),
			CreatedAt:      derefTime(n.courseCreated),
			UpdatedAt:      derefTime(n.courseUpdated),
		}
		if n.rating != nil {
			d.Course.Rating = *n.rating
		}
	}
	return &d, nil
}

func (r *Repository) GetBookingDetail(ctx context.Context, id uuid.UUID) (*domain.BookingDetail, error) {
	return scanDetail(r.pool.QueryRow(ctx, detailQuery+` WHERE b.id = $1`, id))
}

func (r *Repository) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingDetail, error) {
	var where []string
	var args []any
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, "b.user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.CourseID != nil {
		args = append(args, *filter.CourseID)
		where = append(where, "b.course_id = $"+strconv.Itoa(len(args)))
	}
	query := detailQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.created_at, b.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	defer rows.Close()

	details := []domain.BookingDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

func (r *Repository) HasUserBookedCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bookings WHERE user_id = $1 AND course_id = $2)
	`, userID, courseID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "has user booked course")
	}
	return exists, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
