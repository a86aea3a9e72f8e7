package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/robertarktes/course-bookings/internal/domain"
)

func TestErrorKinds(t *testing.T) {
	err := domain.Conflict(domain.MsgAlreadyBooked)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict kind, got %v", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Error("conflict must not match not found")
	}
	if err.Error() != "You have already booked this course" {
		t.Errorf("unexpected message %q", err.Error())
	}

	wrapped := fmt.Errorf("create booking: %w", domain.Forbidden(domain.MsgUnauthorizedCancel))
	if !errors.Is(wrapped, domain.ErrForbidden) {
		t.Error("expected forbidden kind through wrapping")
	}
	if got := domain.Message(wrapped); got != domain.MsgUnauthorizedCancel {
		t.Errorf("expected message %q, got %q", domain.MsgUnauthorizedCancel, got)
	}
}

func TestOperationFailedKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := domain.OperationFailed(domain.MsgBookingFailed, cause)
	if !errors.Is(err, domain.ErrOperationFailed) {
		t.Fatalf("expected operation failed kind, got %v", err)
	}
	if domain.Cause(err) != cause {
		t.Errorf("expected cause to be kept, got %v", domain.Cause(err))
	}
	if domain.Message(cause) != "operation failed" {
		t.Errorf("expected generic message for plain errors, got %q", domain.Message(cause))
	}
}
