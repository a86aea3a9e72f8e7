package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

type Course struct {
	ID             uuid.UUID
	Title          string
	Description    string
	ImageURL       string
	Level          string
	Category       string
	Duration       string
	Rating         float64
	TotalSeats     int
	AvailableSeats int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Booking struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CourseID  uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingDetail is a booking with its user and course attached for presentation.
// User or Course is nil when the referenced row no longer exists.
type BookingDetail struct {
	Booking
	User   *User
	Course *Course
}

// BookingFilter narrows a booking listing. Nil fields match everything.
type BookingFilter struct {
	UserID   *uuid.UUID
	CourseID *uuid.UUID
}

// SeatUsage is one course's ledger state next to the number of live bookings against it.
type SeatUsage struct {
	CourseID       uuid.UUID
	Title          string
	TotalSeats     int
	AvailableSeats int
	Booked         int
}

// Drift is the number of seats neither available nor held by a live booking.
// Zero for a consistent ledger; negative when more seats were released than taken.
func (u SeatUsage) Drift() int {
	return u.TotalSeats - u.AvailableSeats - u.Booked
}

func (u SeatUsage) OutOfRange() bool {
	return u.AvailableSeats < 0 || u.AvailableSeats > u.TotalSeats
}
