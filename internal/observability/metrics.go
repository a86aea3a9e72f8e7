package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cb_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cb_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cb_booking_operations_total",
			Help: "Booking create/cancel operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cb_outbox_lag_seconds",
			Help: "Age of the oldest event in the last published outbox batch",
		},
	)

	OutboxPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cb_outbox_publish_failures_total",
			Help: "Total outbox events that failed to publish",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cb_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	LedgerDrift = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cb_ledger_seat_drift",
			Help: "total_seats - available_seats - live bookings per course",
		},
		[]string{"course_id"},
	)

	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cb_audit_events_total",
			Help: "Booking events consumed into the audit log by outcome",
		},
		[]string{"event_type", "outcome"},
	)
)
