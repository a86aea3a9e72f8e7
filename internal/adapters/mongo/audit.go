package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const AuditCollection = "audit_logs"

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection(AuditCollection),
		logger: logger,
	}
}

// AuditLog is one booking event. The event id is the document id, so a
// redelivered event cannot be stored twice.
type AuditLog struct {
	ID         string    `bson:"_id"`
	Action     string    `bson:"action"`
	BookingID  string    `bson:"booking_id"`
	UserID     string    `bson:"user_id"`
	CourseID   string    `bson:"course_id"`
	OccurredAt time.Time `bson:"occurred_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// EnsureIndexes creates the lookup indexes used by operators to trace a user or course.
func (a *AuditLogger) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetName("booking_id")},
	})
	return errors.Wrap(err, "create audit indexes")
}

// LogBookingEvent stores ev once. A duplicate delivery is reported as
// recorded=false without error.
func (a *AuditLogger) LogBookingEvent(ctx context.Context, ev domain.BookingEvent) (bool, error) {
	log := AuditLog{
		ID:         ev.EventID.String(),
		Action:     ev.EventType,
		BookingID:  ev.BookingID.String(),
		UserID:     ev.UserID.String(),
		CourseID:   ev.CourseID.String(),
		OccurredAt: ev.OccurredAt,
		RecordedAt: time.Now().UTC(),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		a.logger.WithError(err).WithField("event_id", log.ID).Error("failed to insert audit log")
		return false, errors.Wrap(err, "insert audit log")
	}
	return true, nil
}

// History returns the audit trail of one booking, oldest first.
func (a *AuditLogger) History(ctx context.Context, bookingID string) ([]AuditLog, error) {
	cur, err := a.coll.Find(ctx, bson.M{"booking_id": bookingID}, options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find audit logs")
	}
	var out []AuditLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode audit logs")
	}
	return out, nil
}
