// Package booking owns the booking lifecycle: seat accounting and booking
// creation or cancellation, each as one store transaction.
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Store interface {
	domain.TxRunner
	domain.BookingReader
}

type Service struct {
	store  Store
	logger observability.Logger
	tracer trace.Tracer
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of booking timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, logger observability.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("booking"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books one seat of courseID for userID.
func (s *Service) Create(ctx context.Context, courseID, userID uuid.UUID) (domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Create", trace.WithAttributes(
		attribute.String("course_id", courseID.String()),
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	var created domain.Booking
	err := s.store.RunInTx(ctx, func(tx domain.Tx) error {
		course, err := tx.GetCourse(ctx, courseID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound(domain.MsgCourseNotFound)
		}
		if err != nil {
			return errors.Wrap(err, "get course")
		}
		if course.AvailableSeats <= 0 {
			return domain.Conflict(domain.MsgNoAvailableSeats)
		}

		_, err = tx.FindUserBooking(ctx, userID, courseID)
		if err == nil {
			return domain.Conflict(domain.MsgAlreadyBooked)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return errors.Wrap(err, "find user booking")
		}

		ok, err := tx.ReduceSeats(ctx, courseID, 1)
		if err != nil {
			return errors.Wrap(err, "reduce seats")
		}
		if !ok {
			return domain.Conflict(domain.MsgBookingFailed)
		}

		now := s.now()
		b := domain.NewBooking(courseID, userID, now)
		if err := tx.InsertBooking(ctx, b); err != nil {
			return errors.Wrap(err, "insert booking")
		}
		ev, err := domain.NewBookingEvent(domain.EventBookingCreated, b, now)
		if err != nil {
			return errors.Wrap(err, "encode booking event")
		}
		if err := tx.InsertEvent(ctx, ev); err != nil {
			return errors.Wrap(err, "insert outbox event")
		}
		created = b
		return nil
	})
	if err != nil {
		err = s.classify(err, domain.MsgBookingFailed, true)
		s.finish(ctx, span, "create", err)
		return domain.Booking{}, err
	}

	span.SetAttributes(attribute.String("booking_id", created.ID.String()))
	s.finish(ctx, span, "create", nil)
	return created, nil
}

// Cancel removes bookingID on behalf of userID and returns its seat to the
// course. It reports false without error when the booking does not exist.
func (s *Service) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(
		attribute.String("booking_id", bookingID.String()),
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	found := true
	err := s.store.RunInTx(ctx, func(tx domain.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if errors.Is(err, domain.ErrNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "get booking")
		}
		if b.UserID != userID {
			return domain.Forbidden(domain.MsgUnauthorizedCancel)
		}

		// A booking whose course was removed has no seat to give back.
		if err := tx.IncreaseSeats(ctx, b.CourseID, 1); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return errors.Wrap(err, "increase seats")
		}
		if err := tx.DeleteBooking(ctx, b.ID); err != nil {
			return errors.Wrap(err, "delete booking")
		}
		ev, err := domain.NewBookingEvent(domain.EventBookingCancelled, *b, s.now())
		if err != nil {
			return errors.Wrap(err, "encode booking event")
		}
		return errors.Wrap(tx.InsertEvent(ctx, ev), "insert outbox event")
	})
	if err != nil {
		err = s.classify(err, domain.MsgCancelFailed, false)
		s.finish(ctx, span, "cancel", err)
		return false, err
	}
	if !found {
		observability.BookingsTotal.WithLabelValues("cancel", "not_found").Inc()
		return false, nil
	}
	s.finish(ctx, span, "cancel", nil)
	return true, nil
}

// Get returns the booking with its user and course, or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (*domain.BookingDetail, error) {
	d, err := s.store.GetBookingDetail(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound(domain.MsgBookingNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get booking")
	}
	return d, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.BookingDetail, error) {
	return s.list(ctx, domain.BookingFilter{})
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.BookingDetail, error) {
	return s.list(ctx, domain.BookingFilter{UserID: &userID})
}

func (s *Service) ListForCourse(ctx context.Context, courseID uuid.UUID) ([]domain.BookingDetail, error) {
	return s.list(ctx, domain.BookingFilter{CourseID: &courseID})
}

func (s *Service) HasUserBookedCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	ok, err := s.store.HasUserBookedCourse(ctx, courseID, userID)
	return ok, errors.Wrap(err, "has user booked course")
}

func (s *Service) list(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingDetail, error) {
	out, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	return out, nil
}

// classify keeps domain errors as they are. A lost ledger race on create is a
// conflict; every other store failure becomes an operation failure.
func (s *Service) classify(err error, msg string, create bool) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if create && errors.Is(err, domain.ErrSerializationFailure) {
		return domain.Conflict(domain.MsgBookingFailed)
	}
	return domain.OperationFailed(msg, err)
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err == nil {
		observability.BookingsTotal.WithLabelValues(op, "ok").Inc()
		return
	}
	outcome := "failed"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, domain.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, domain.ErrForbidden):
		outcome = "forbidden"
	}
	observability.BookingsTotal.WithLabelValues(op, outcome).Inc()

	log := observability.LoggerFromContext(ctx, s.logger).WithField("operation", op)
	if errors.Is(err, domain.ErrOperationFailed) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(domain.Cause(err)).Error("booking transaction failed")
		return
	}
	log.WithField("outcome", outcome).Debug(err.Error())
}
