package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	AggregateBooking = "booking"

	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// OutboxEvent is written in the same transaction as the state change it describes.
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	DedupeKey     string
}

type BookingEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	EventType  string    `json:"event_type"`
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     uuid.UUID `json:"user_id"`
	CourseID   uuid.UUID `json:"course_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b Booking, now time.Time) (OutboxEvent, error) {
	id := uuid.New()
	payload, err := json.Marshal(BookingEvent{
		EventID:    id,
		EventType:  eventType,
		BookingID:  b.ID,
		UserID:     b.UserID,
		CourseID:   b.CourseID,
		OccurredAt: now.UTC(),
	})
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		ID:            id,
		AggregateType: AggregateBooking,
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now.UTC(),
		DedupeKey:     id.String(),
	}, nil
}
