package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/course-bookings/internal/adapters/memory"
	"github.com/robertarktes/course-bookings/internal/booking"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/ledger"
	"github.com/robertarktes/course-bookings/internal/observability"
)

func TestAuditor_Check(t *testing.T) {
	ctx := context.Background()
	logger := observability.NewLogger("panic")
	store := memory.NewStore()

	healthy, _ := domain.NewCourse(domain.Course{Title: "Healthy", TotalSeats: 3, AvailableSeats: 3}, time.Now())
	broken, _ := domain.NewCourse(domain.Course{Title: "Broken", TotalSeats: 3, AvailableSeats: 3}, time.Now())
	for _, c := range []domain.Course{healthy, broken} {
		if err := store.CreateCourse(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	svc := booking.NewService(store, logger)
	for _, id := range []uuid.UUID{healthy.ID, broken.ID} {
		if _, err := svc.Create(ctx, id, uuid.New()); err != nil {
			t.Fatal(err)
		}
	}

	auditor := ledger.NewAuditor(store, logger, time.Minute)
	report, err := auditor.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Courses != 2 || len(report.Inconsistent) != 0 {
		t.Fatalf("expected a consistent ledger, got %+v", report)
	}

	store.SetAvailableSeats(broken.ID, 3)
	report, err = auditor.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Inconsistent) != 1 || report.Inconsistent[0].CourseID != broken.ID {
		t.Fatalf("expected the broken course to be reported, got %+v", report)
	}
	if report.Inconsistent[0].Drift() != -1 {
		t.Errorf("expected drift -1, got %d", report.Inconsistent[0].Drift())
	}
	if c, _ := store.Course(broken.ID); c.AvailableSeats != 3 {
		t.Errorf("expected the auditor to leave seat counts alone, got %d", c.AvailableSeats)
	}
}
