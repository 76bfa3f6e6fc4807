package articlestore

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
	c     *mongo.Collection
	stock *mongo.Collection
}

var (
	ErrDuplicateArticle = errors.New("an article with this name already exists")
	ErrNotFound         = errors.New("article not found")
	ErrInUse            = errors.New("article is referenced by stock items")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("article_names"), stock: db.Collection("stock_items")}
}

func (s *Store) Create(ctx context.Context, a models.ArticleName) (models.ArticleName, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.Name = normalize.Name(a.Name)
	a.NameCI = text.Fold(a.Name)
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ArticleName{}, ErrDuplicateArticle
		}
		return models.ArticleName{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ArticleName, error) {
	var a models.ArticleName
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ArticleName{}, ErrNotFound
	}
	return a, err
}

// List returns the catalogue ordered by name.
func (s *Store) List(ctx context.Context) ([]models.ArticleName, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	var out []models.ArticleName
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		out = nil
		return cur.All(ctx, &out)
	})
	return out, err
}

// Update renames an article and propagates the new name to stock items.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, a models.ArticleName) error {
	name := normalize.Name(a.Name)
	now := time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"category":   a.Category,
		"unit":       a.Unit,
		"updated_at": now,
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateArticle
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = s.stock.UpdateMany(ctx, bson.M{"article_name_id": id}, bson.M{"$set": bson.M{
		"article_name":    name,
		"article_name_ci": text.Fold(name),
		"updated_at":      now,
	}})
	return err
}

// Delete removes an article that no stock item references.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.stock.CountDocuments(ctx, bson.M{"article_name_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
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
