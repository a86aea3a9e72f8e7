package domain

import (
	"context"

	"github.com/google/uuid"
)

// Tx is the storage available inside one atomic unit of work. Lookups return
// ErrNotFound when the row does not exist.
type Tx interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*Course, error)
	// ReduceSeats is the guarded decrement: false when fewer than n seats remain
	// or the course is missing.
	ReduceSeats(ctx context.Context, courseID uuid.UUID, n int) (bool, error)
	// IncreaseSeats adds n seats back, clamped to the course capacity.
	IncreaseSeats(ctx context.Context, courseID uuid.UUID, n int) error

	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	FindUserBooking(ctx context.Context, userID, courseID uuid.UUID) (*Booking, error)
	InsertBooking(ctx context.Context, b Booking) error
	DeleteBooking(ctx context.Context, id uuid.UUID) error

	InsertEvent(ctx context.Context, ev OutboxEvent) error
}

// TxRunner commits fn's writes all together or not at all. Implementations
// return ErrSerializationFailure when a concurrent transaction won.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

type BookingReader interface {
	GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]BookingDetail, error)
	HasUserBookedCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
}

type CourseStore interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	CreateCourse(ctx context.Context, c Course) error
}
