// Package ledger checks that seat counts agree with live bookings. It only
// reports disagreement and never rewrites seat counts.
package ledger

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

type UsageSource interface {
	SeatUsage(ctx context.Context) ([]domain.SeatUsage, error)
}

type Report struct {
	Courses      int
	Inconsistent []domain.SeatUsage
}

type Auditor struct {
	source   UsageSource
	logger   observability.Logger
	interval time.Duration
}

func NewAuditor(source UsageSource, logger observability.Logger, interval time.Duration) *Auditor {
	return &Auditor{source: source, logger: logger, interval: interval}
}

func (a *Auditor) Check(ctx context.Context) (Report, error) {
	usage, err := a.source.SeatUsage(ctx)
	if err != nil {
		return Report{}, errors.Wrap(err, "load seat usage")
	}
	report := Report{Courses: len(usage)}
	for _, u := range usage {
		observability.LedgerDrift.WithLabelValues(u.CourseID.String()).Set(float64(u.Drift()))
		if u.Drift() == 0 && !u.OutOfRange() {
			continue
		}
		report.Inconsistent = append(report.Inconsistent, u)
		a.logger.
			WithField("course_id", u.CourseID.String()).
			WithField("title", u.Title).
			WithField("total_seats", u.TotalSeats).
			WithField("available_seats", u.AvailableSeats).
			WithField("booked", u.Booked).
			WithField("drift", u.Drift()).
			Warn("seat ledger disagrees with bookings")
	}
	return report, nil
}

func (a *Auditor) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if report, err := a.Check(ctx); err != nil {
			a.logger.WithError(err).Error("ledger audit failed")
		} else {
			a.logger.WithField("courses", report.Courses).WithField("inconsistent", len(report.Inconsistent)).Info("ledger audit finished")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
