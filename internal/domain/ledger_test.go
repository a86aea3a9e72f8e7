package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/robertarktes/course-bookings/internal/domain"
)

func TestTakeSeats(t *testing.T) {
	tests := []struct {
		name      string
		available int
		n         int
		wantOK    bool
		wantAvail int
	}{
		{"enough seats", 3, 1, true, 2},
		{"last seat", 1, 1, true, 0},
		{"sold out", 0, 1, false, 0},
		{"not enough for n", 2, 3, false, 2},
		{"zero request", 2, 0, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.Course{TotalSeats: 10, AvailableSeats: tt.available}
			if ok := domain.TakeSeats(&c, tt.n); ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if c.AvailableSeats != tt.wantAvail {
				t.Errorf("expected %d available, got %d", tt.wantAvail, c.AvailableSeats)
			}
		})
	}
}

func TestReleaseSeatsClampsToCapacity(t *testing.T) {
	c := domain.Course{TotalSeats: 2, AvailableSeats: 1}
	domain.ReleaseSeats(&c, 1)
	if c.AvailableSeats != 2 {
		t.Fatalf("expected 2 available, got %d", c.AvailableSeats)
	}
	domain.ReleaseSeats(&c, 1)
	if c.AvailableSeats != 2 {
		t.Errorf("expected release past capacity to clamp at 2, got %d", c.AvailableSeats)
	}
}

func TestNewCourseValidatesSeats(t *testing.T) {
	now := time.Now()
	if _, err := domain.NewCourse(domain.Course{TotalSeats: 5, AvailableSeats: 6}, now); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input for available > total, got %v", err)
	}
	if _, err := domain.NewCourse(domain.Course{TotalSeats: -1}, now); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input for negative total, got %v", err)
	}
	c, err := domain.NewCourse(domain.Course{Title: "Go", TotalSeats: 5, AvailableSeats: 5}, now)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID.String() == "00000000-0000-0000-0000-000000000000" || c.CreatedAt.IsZero() {
		t.Errorf("expected id and timestamps to be set, got %+v", c)
	}
}

func TestSeatUsageDrift(t *testing.T) {
	u := domain.SeatUsage{TotalSeats: 10, AvailableSeats: 7, Booked: 3}
	if u.Drift() != 0 || u.OutOfRange() {
		t.Errorf("expected consistent usage, got drift %d", u.Drift())
	}
	u.AvailableSeats = 8
	if u.Drift() != -1 {
		t.Errorf("expected drift -1, got %d", u.Drift())
	}
	u.AvailableSeats = 11
	if !u.OutOfRange() {
		t.Error("expected available above total to be out of range")
	}
}
