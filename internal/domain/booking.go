package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MsgCourseNotFound     = "Course not found"
	MsgNoAvailableSeats   = "No available seats for this course"
	MsgAlreadyBooked      = "You have already booked this course"
	MsgBookingFailed      = "Failed to book course"
	MsgUnauthorizedCancel = "Unauthorized to cancel this booking"
	MsgBookingNotFound    = "Booking not found"
	MsgCancelFailed       = "Failed to cancel booking"
)

func NewBooking(courseID, userID uuid.UUID, now time.Time) Booking {
	now = now.UTC()
	return Booking{
		ID:        uuid.New(),
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewCourse(c Course, now time.Time) (Course, error) {
	if err := ValidateSeats(c.TotalSeats, c.AvailableSeats); err != nil {
		return Course{}, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = now.UTC()
	c.UpdatedAt = c.CreatedAt
	return c, nil
}
