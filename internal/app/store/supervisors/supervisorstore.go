package supervisorstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("supervisor not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("supervisors")}
}

func (s *Store) Create(ctx context.Context, sup models.Supervisor) (models.Supervisor, error) {
	now := time.Now().UTC()
	sup.ID = primitive.NewObjectID()
	sup.FullName = normalize.Name(sup.FullName)
	sup.FullNameCI = text.Fold(sup.FullName)
	sup.CIN = normalize.CIN(sup.CIN)
	sup.Phone = normalize.Phone(sup.Phone)
	if sup.Status == "" {
		sup.Status = models.StatusActive
	}
	sup.CreatedAt = now
	sup.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, sup); err != nil {
		return models.Supervisor{}, err
	}
	return sup, nil
}

// GetOnFarm loads a supervisor that must belong to farmID.
func (s *Store) GetOnFarm(ctx context.Context, farmID, id primitive.ObjectID) (models.Supervisor, error) {
	var sup models.Supervisor
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": id, "farm_id": farmID}).Decode(&sup)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Supervisor{}, ErrNotFound
	}
	return sup, err
}

// ListByFarm returns the supervisors of farmID ordered by name.
func (s *Store) ListByFarm(ctx context.Context, farmID primitive.ObjectID) ([]models.Supervisor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	var out []models.Supervisor
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, bson.M{"farm_id": farmID}, opts)
		if err != nil {
			return err
		}
		out = nil
		return cur.All(ctx, &out)
	})
	return out, err
}

// Update replaces the mutable fields of a supervisor on farmID.
func (s *Store) Update(ctx context.Context, farmID, id primitive.ObjectID, sup models.Supervisor) error {
	name := normalize.Name(sup.FullName)
	set := bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"cin":          normalize.CIN(sup.CIN),
		"phone":        normalize.Phone(sup.Phone),
		"updated_at":   time.Now().UTC(),
	}
	if sup.Status != "" {
		set["status"] = sup.Status
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "farm_id": farmID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a supervisor from farmID. Callers clear room references.
func (s *Store) Delete(ctx context.Context, farmID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "farm_id": farmID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
