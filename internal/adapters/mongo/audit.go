package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records every successful mutating API call for later review.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditEntry struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	Actor     uuid.UUID `bson:"actor"`
	EventID   uuid.UUID `bson:"event_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

// LogAction is best-effort: a failed insert is logged, never surfaced to
// the caller.
func (a *AuditLogger) LogAction(ctx context.Context, action string, actor, eventID uuid.UUID, data map[string]interface{}) {
	entry := AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		Actor:     actor,
		EventID:   eventID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		a.logger.Error("failed to insert audit entry", err)
	}
}
