// internal/app/features/workerimport/preview.go
package workerimport

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dormhub/internal/app/features/workerimport/importutil"
	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PreviewTTL is how long an uploaded file can be edited and committed.
const PreviewTTL = time.Hour

var (
	ErrPreviewNotFound = errors.New("import preview not found or expired")
	ErrRowNotFound     = errors.New("row not found in preview")
)

// Preview is an uploaded file waiting to be committed.
type Preview struct {
	Token     string             `bson:"_id" json:"token"`
	FarmID    primitive.ObjectID `bson:"farm_id" json:"farm_id"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	FileName  string             `bson:"file_name" json:"file_name"`
	Mapping   importutil.Mapping `bson:"mapping" json:"mapping"`
	Rows      []importutil.Row   `bson:"rows" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
}

// PreviewStore keeps previews in import_previews. A TTL index removes
// expired documents; DeleteExpired does the same on demand.
type PreviewStore struct {
	c   *mongo.Collection
	now func() time.Time
}

func NewPreviewStore(db *mongo.Database) *PreviewStore {
	return &PreviewStore{
		c:   db.Collection("import_previews"),
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Save stores p under a new random token.
func (s *PreviewStore) Save(ctx context.Context, p Preview) (Preview, error) {
	p.Token = uuid.NewString()
	p.CreatedAt = s.now()
	p.ExpiresAt = p.CreatedAt.Add(PreviewTTL)
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return Preview{}, err
	}
	return p, nil
}

// Get loads an unexpired preview of farmID.
func (s *PreviewStore) Get(ctx context.Context, farmID primitive.ObjectID, token string) (Preview, error) {
	var p Preview
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, s.filter(farmID, token)).Decode(&p)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Preview{}, ErrPreviewNotFound
	}
	return p, err
}

func (s *PreviewStore) filter(farmID primitive.ObjectID, token string) bson.M {
	return bson.M{"_id": token, "farm_id": farmID, "expires_at": bson.M{"$gt": s.now()}}
}

// ReplaceRow overwrites the row with the same line number.
func (s *PreviewStore) ReplaceRow(ctx context.Context, farmID primitive.ObjectID, token string, row importutil.Row) error {
	filter := s.filter(farmID, token)
	filter["rows.line"] = row.Line
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"rows.$": row}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.Get(ctx, farmID, token); err != nil {
		return err
	}
	return ErrRowNotFound
}

// Delete removes a preview of farmID.
func (s *PreviewStore) Delete(ctx context.Context, farmID primitive.ObjectID, token string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": token, "farm_id": farmID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrPreviewNotFound
	}
	return nil
}

// DeleteExpired removes previews that expired before now.
func (s *PreviewStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
