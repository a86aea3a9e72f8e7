package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/course-bookings/internal/adapters/memory"
	"github.com/robertarktes/course-bookings/internal/booking"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
	"golang.org/x/sync/errgroup"
)

func setup(t *testing.T, total, available int) (*booking.Service, *memory.Store, domain.Course) {
	t.Helper()
	store := memory.NewStore()
	course, err := domain.NewCourse(domain.Course{Title: "Intro to Go", TotalSeats: total, AvailableSeats: available}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateCourse(context.Background(), course); err != nil {
		t.Fatal(err)
	}
	return booking.NewService(store, observability.NewLogger("panic")), store, course
}

func seats(t *testing.T, store *memory.Store, id uuid.UUID) int {
	t.Helper()
	c, ok := store.Course(id)
	if !ok {
		t.Fatalf("course %s missing", id)
	}
	if c.AvailableSeats < 0 || c.AvailableSeats > c.TotalSeats {
		t.Fatalf("ledger out of range: %d of %d", c.AvailableSeats, c.TotalSeats)
	}
	return c.AvailableSeats
}

func expectConflict(t *testing.T, err error, msg string) {
	t.Helper()
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if msg != "" && err.Error() != msg {
		t.Errorf("expected message %q, got %q", msg, err.Error())
	}
}

func TestLastSeatScenario(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 10, 1)
	userA, userB := uuid.New(), uuid.New()

	b, err := svc.Create(ctx, course.ID, userA)
	if err != nil {
		t.Fatal(err)
	}
	if b.UserID != userA || b.CourseID != course.ID {
		t.Errorf("unexpected booking %+v", b)
	}
	if got := seats(t, store, course.ID); got != 0 {
		t.Fatalf("expected 0 seats after booking, got %d", got)
	}

	_, err = svc.Create(ctx, course.ID, userB)
	expectConflict(t, err, "No available seats for this course")
	if got := seats(t, store, course.ID); got != 0 {
		t.Errorf("expected failed create to leave 0 seats, got %d", got)
	}

	ok, err := svc.Cancel(ctx, b.ID, userA)
	if err != nil || !ok {
		t.Fatalf("expected cancel to succeed, got %v %v", ok, err)
	}
	if got := seats(t, store, course.ID); got != 1 {
		t.Errorf("expected 1 seat after cancel, got %d", got)
	}
	if len(store.Bookings()) != 0 {
		t.Errorf("expected booking to be removed, got %d", len(store.Bookings()))
	}
}

func TestCreateTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 10, 10)
	user := uuid.New()

	if _, err := svc.Create(ctx, course.ID, user); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, course.ID, user)
	expectConflict(t, err, "You have already booked this course")
	if got := seats(t, store, course.ID); got != 9 {
		t.Errorf("expected 9 seats, got %d", got)
	}
	if len(store.Bookings()) != 1 {
		t.Errorf("expected a single live booking, got %d", len(store.Bookings()))
	}
}

func TestCreateUnknownCourse(t *testing.T) {
	svc, store, _ := setup(t, 1, 1)
	_, err := svc.Create(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) || err.Error() != "Course not found" {
		t.Fatalf("expected Course not found, got %v", err)
	}
	if len(store.Events()) != 0 {
		t.Errorf("expected no events for a failed create, got %d", len(store.Events()))
	}
}

func TestConcurrentCreatesOnLastSeat(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 5, 1)

	const users = 16
	errs := make([]error, users)
	var g errgroup.Group
	for i := 0; i < users; i++ {
		g.Go(func() error {
			_, errs[i] = svc.Create(ctx, course.ID, uuid.New())
			return nil
		})
	}
	g.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("expected losers to get conflict, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one booking, got %d", wins)
	}
	if got := seats(t, store, course.ID); got != 0 {
		t.Errorf("expected 0 seats, got %d", got)
	}
	if len(store.Bookings()) != 1 {
		t.Errorf("expected one booking stored, got %d", len(store.Bookings()))
	}
}

func TestCreateSerializationFailureIsConflict(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 3, 3)

	store.FailNextCommit(errors.Join(domain.ErrSerializationFailure, errors.New("restart transaction")))
	_, err := svc.Create(ctx, course.ID, uuid.New())
	expectConflict(t, err, "Failed to book course")
	if got := seats(t, store, course.ID); got != 3 {
		t.Errorf("expected no seat taken, got %d available", got)
	}
}

func TestCreateCommitFailureIsOperationFailed(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 3, 3)

	cause := errors.New("connection reset")
	store.FailNextCommit(cause)
	_, err := svc.Create(ctx, course.ID, uuid.New())
	if !errors.Is(err, domain.ErrOperationFailed) {
		t.Fatalf("expected operation failed, got %v", err)
	}
	if !errors.Is(domain.Cause(err), cause) {
		t.Errorf("expected cause to be kept, got %v", domain.Cause(err))
	}
	if len(store.Bookings()) != 0 || len(store.Events()) != 0 {
		t.Error("expected no partial writes")
	}
	if got := seats(t, store, course.ID); got != 3 {
		t.Errorf("expected 3 seats, got %d", got)
	}
}

func TestCancelByOtherUserIsForbidden(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 2, 2)
	owner := uuid.New()

	b, err := svc.Create(ctx, course.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := svc.Cancel(ctx, b.ID, uuid.New())
	if !errors.Is(err, domain.ErrForbidden) || ok {
		t.Fatalf("expected forbidden, got %v %v", ok, err)
	}
	if err.Error() != "Unauthorized to cancel this booking" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if got := seats(t, store, course.ID); got != 1 {
		t.Errorf("expected seats unchanged at 1, got %d", got)
	}
	if len(store.Bookings()) != 1 {
		t.Error("expected booking to survive a forbidden cancel")
	}
}

func TestCancelMissingBooking(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 2, 2)

	ok, err := svc.Cancel(ctx, uuid.New(), uuid.New())
	if err != nil || ok {
		t.Fatalf("expected plain negative result, got %v %v", ok, err)
	}
	if got := seats(t, store, course.ID); got != 2 {
		t.Errorf("expected 2 seats, got %d", got)
	}
	if len(store.Events()) != 0 {
		t.Errorf("expected no events, got %d", len(store.Events()))
	}
}

func TestCancelClampsAtCapacity(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 2, 2)

	b, err := svc.Create(ctx, course.ID, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	store.SetAvailableSeats(course.ID, 2)

	if ok, err := svc.Cancel(ctx, b.ID, b.UserID); err != nil || !ok {
		t.Fatalf("expected cancel to succeed, got %v %v", ok, err)
	}
	if got := seats(t, store, course.ID); got != 2 {
		t.Errorf("expected release to clamp at 2, got %d", got)
	}
}

func TestOutboxEventsFollowCommittedChanges(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 2, 2)
	user := uuid.New()

	b, err := svc.Create(ctx, course.ID, user)
	if err != nil {
		t.Fatal(err)
	}
	svc.Create(ctx, course.ID, user)
	if _, err := svc.Cancel(ctx, b.ID, user); err != nil {
		t.Fatal(err)
	}

	events := store.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventType != domain.EventBookingCreated || events[1].EventType != domain.EventBookingCancelled {
		t.Errorf("unexpected event order %s, %s", events[0].EventType, events[1].EventType)
	}
	for _, ev := range events {
		if ev.AggregateID != b.ID {
			t.Errorf("expected aggregate %s, got %s", b.ID, ev.AggregateID)
		}
	}
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	svc, store, course := setup(t, 5, 5)
	user := store.AddUser(domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleUser})
	other := uuid.New()

	b, err := svc.Create(ctx, course.ID, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, course.ID, other); err != nil {
		t.Fatal(err)
	}

	d, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.User == nil || d.User.Email != "ada@example.com" || d.Course == nil || d.Course.ID != course.ID {
		t.Errorf("expected user and course attached, got %+v", d)
	}
	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	all, _ := svc.ListAll(ctx)
	mine, _ := svc.ListForUser(ctx, user.ID)
	forCourse, _ := svc.ListForCourse(ctx, course.ID)
	if len(all) != 2 || len(mine) != 1 || len(forCourse) != 2 {
		t.Errorf("unexpected list sizes all=%d mine=%d course=%d", len(all), len(mine), len(forCourse))
	}

	booked, err := svc.HasUserBookedCourse(ctx, course.ID, user.ID)
	if err != nil || !booked {
		t.Errorf("expected user to have booked, got %v %v", booked, err)
	}
	booked, _ = svc.HasUserBookedCourse(ctx, course.ID, uuid.New())
	if booked {
		t.Error("expected a stranger not to have booked")
	}
}
