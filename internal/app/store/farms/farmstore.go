// internal/app/store/farms/farmstore.go
package farmstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateFarm = errors.New("a farm with this name already exists")
	ErrNotFound      = errors.New("farm not found")
	ErrInUse         = errors.New("farm still has rooms, workers or users")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("farms")}
}

func (s *Store) Create(ctx context.Context, f models.Farm) (models.Farm, error) {
	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	f.Name = normalize.Name(f.Name)
	f.NameCI = text.Fold(f.Name)
	if f.Status == "" {
		f.Status = models.StatusActive
	}
	f.CreatedAt = now
	f.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Farm{}, ErrDuplicateFarm
		}
		return models.Farm{}, err
	}
	return f, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Farm, error) {
	var f models.Farm
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Farm{}, ErrNotFound
	}
	return f, err
}

// GetByIDs loads multiple farms by their ObjectIDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Farm, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// Names returns a map of farm id to display name for ids.
func (s *Store) Names(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	farms, err := s.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]string, len(farms))
	for _, f := range farms {
		out[f.ID] = f.Name
	}
	return out, nil
}

// Update modifies a farm's mutable fields and refreshes UpdatedAt.
// Empty fields are left unchanged.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, f models.Farm) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if f.Name != "" {
		name := normalize.Name(f.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if f.Code != "" {
		set["code"] = f.Code
	}
	if f.Location != "" {
		set["location"] = f.Location
	}
	if f.Status != "" {
		set["status"] = f.Status
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateFarm
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a farm that nothing references any more.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	db := s.c.Database()
	for _, coll := range []string{"rooms", "workers", "users", "stock_items"} {
		n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"farm_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrInUse
		}
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Find returns farms matching filter, sorted by name unless opts say otherwise.
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Farm, error) {
	if len(opts) == 0 {
		opts = []*options.FindOptions{options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})}
	}
	var farms []models.Farm
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, filter, opts...)
		if err != nil {
			return err
		}
		farms = nil
		return cur.All(ctx, &farms)
	})
	return farms, err
}

// Count returns the number of farms matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
