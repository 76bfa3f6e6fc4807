// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultLimit is the page size of List when none is given.
	DefaultLimit = 50
	maxTitle     = 200
	maxMessage   = 2000
)

var ErrNotFound = errors.New("notification not found")

// Store is a per-recipient mailbox. Every read and mutation is scoped to
// a recipient id, so one user can never touch another user's documents.
type Store struct {
	c     *mongo.Collection
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications"), users: db.Collection("users")}
}

// Message is the content shared by every notification of one send.
type Message struct {
	Type    string
	Title   string
	Message string
	Link    string
	FarmID  *primitive.ObjectID
}

// Batch is the result of one send.
type Batch struct {
	ID            string
	Notifications []models.Notification
}

// SendToUsers writes one notification per distinct recipient.
func (s *Store) SendToUsers(ctx context.Context, recipients []primitive.ObjectID, msg Message) (Batch, error) {
	batch := Batch{ID: uuid.NewString()}
	seen := make(map[primitive.ObjectID]bool, len(recipients))
	now := time.Now().UTC().Truncate(time.Millisecond)
	title := htmlsanitize.PlainTextMax(msg.Title, maxTitle)
	body := htmlsanitize.PlainTextMax(msg.Message, maxMessage)

	docs := make([]any, 0, len(recipients))
	for _, r := range recipients {
		if r.IsZero() || seen[r] {
			continue
		}
		seen[r] = true
		n := models.Notification{
			ID:          primitive.NewObjectID(),
			RecipientID: r,
			FarmID:      msg.FarmID,
			Type:        msg.Type,
			Title:       title,
			Message:     body,
			Link:        msg.Link,
			BatchID:     batch.ID,
			CreatedAt:   now,
		}
		batch.Notifications = append(batch.Notifications, n)
		docs = append(docs, n)
	}
	if len(docs) == 0 {
		return batch, nil
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// SendToFarm notifies every active admin of farmID, except the ids in skip.
func (s *Store) SendToFarm(ctx context.Context, farmID primitive.ObjectID, msg Message, skip ...primitive.ObjectID) (Batch, error) {
	if msg.FarmID == nil {
		msg.FarmID = &farmID
	}
	ids, err := s.userIDs(ctx, bson.M{"role": models.RoleAdmin, "farm_id": farmID, "status": models.StatusActive}, skip)
	if err != nil {
		return Batch{}, err
	}
	return s.SendToUsers(ctx, ids, msg)
}

// SendToRole notifies every active user holding role.
func (s *Store) SendToRole(ctx context.Context, role string, msg Message, skip ...primitive.ObjectID) (Batch, error) {
	ids, err := s.userIDs(ctx, bson.M{"role": role, "status": models.StatusActive}, skip)
	if err != nil {
		return Batch{}, err
	}
	return s.SendToUsers(ctx, ids, msg)
}

func (s *Store) userIDs(ctx context.Context, filter bson.M, skip []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(skip) > 0 {
		filter["_id"] = bson.M{"$nin": skip}
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.users.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		rows = nil
		return cur.All(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// List returns a recipient's notifications, newest first.
func (s *Store) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	filter := bson.M{"recipient_id": recipient}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	var out []models.Notification
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		out = nil
		return cur.All(ctx, &out)
	})
	return out, err
}

// UnreadCount returns how many unread notifications recipient has.
func (s *Store) UnreadCount(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	var n int64
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.c.CountDocuments(ctx, bson.M{"recipient_id": recipient, "read": false})
		return err
	})
	return n, err
}

func (s *Store) updateOne(ctx context.Context, recipient, id primitive.ObjectID, set bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "recipient_id": recipient}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead marks one of recipient's notifications as read.
func (s *Store) MarkRead(ctx context.Context, recipient, id primitive.ObjectID) error {
	return s.updateOne(ctx, recipient, id, bson.M{"read": true, "read_at": time.Now().UTC()})
}

// MarkAllRead marks every unread notification of recipient as read.
func (s *Store) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"recipient_id": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Acknowledge records that recipient acted on a notification. It also
// counts as reading it.
func (s *Store) Acknowledge(ctx context.Context, recipient, id primitive.ObjectID) error {
	now := time.Now().UTC()
	return s.updateOne(ctx, recipient, id, bson.M{
		"read": true, "read_at": now,
		"acknowledged": true, "acknowledged_at": now,
	})
}

// Delete removes one of recipient's notifications.
func (s *Store) Delete(ctx context.Context, recipient, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "recipient_id": recipient})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeOlderThan deletes read notifications created before cutoff.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"read": true, "created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Cursor marks the last notification seen by a poller.
type Cursor struct {
	CreatedAt time.Time
	ID        primitive.ObjectID
}

// After returns notifications created after c in (created_at, _id) order.
func (s *Store) After(ctx context.Context, c Cursor, limit int64) ([]models.Notification, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"created_at": bson.M{"$gt": c.CreatedAt}},
		bson.M{"created_at": c.CreatedAt, "_id": bson.M{"$gt": c.ID}},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Newer reports whether n sorts after c in (created_at, _id) order.
func (c Cursor) Newer(n models.Notification) bool {
	if !n.CreatedAt.Equal(c.CreatedAt) {
		return n.CreatedAt.After(c.CreatedAt)
	}
	return bytes.Compare(n.ID[:], c.ID[:]) > 0
}

// WatchInserts opens a change stream of inserted notifications, resuming
// after resumeAfter when it is non-nil.
func (s *Store) WatchInserts(ctx context.Context, resumeAfter bson.Raw) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"operationType": "insert"}}}}
	opts := options.ChangeStream()
	if resumeAfter != nil {
		opts.SetResumeAfter(resumeAfter)
	}
	return s.c.Watch(ctx, pipeline, opts)
}
