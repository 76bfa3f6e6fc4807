// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
)

// Admin event types
const (
	EventCreated            = "created"
	EventUpdated            = "updated"
	EventDeleted            = "deleted"
	EventStockAdjusted      = "stock_adjusted"
	EventWorkerDeparted     = "worker_departed"
	EventImportCommitted    = "import_committed"
	EventTransferCreated    = "transfer_created"
	EventTransferAssigned   = "transfer_rooms_assigned"
	EventTransferCompleted  = "transfer_completed"
	EventTransferRejected   = "transfer_rejected"
	EventTransferCancelled  = "transfer_cancelled"
	EventConflictResolved   = "conflict_resolved"
	EventSecurityCodeUsed   = "security_code_used"
	EventSecurityCodeDenied = "security_code_denied"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
	FarmID    *primitive.ObjectID `bson:"farm_id,omitempty" json:"farm_id,omitempty"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`
	Entity    string `bson:"entity,omitempty" json:"entity,omitempty"` // "worker", "room", ...

	UserID   *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`     // affected user
	ActorID  *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`   // who acted
	TargetID *primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"` // affected record

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter narrows Query. Zero fields are ignored.
type QueryFilter struct {
	FarmID    *primitive.ObjectID
	UserID    *primitive.ObjectID
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	Entity    string
	Since     *time.Time
	Until     *time.Time
	Limit     int64
	Offset    int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.FarmID != nil {
		q["farm_id"] = *f.FarmID
	}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.Entity != "" {
		q["entity"] = f.Entity
	}
	if f.Since != nil || f.Until != nil {
		tq := bson.M{}
		if f.Since != nil {
			tq["$gte"] = *f.Since
		}
		if f.Until != nil {
			tq["$lte"] = *f.Until
		}
		q["timestamp"] = tq
	}
	return q
}

// Query returns matching events, most recent first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of events matching the filter.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}
