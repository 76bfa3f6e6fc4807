package stockstore

import (
	"context"
	"errors"
	"time"

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
	ErrNotFound     = errors.New("stock item not found")
	ErrDuplicate    = errors.New("this article is already stocked on the farm")
	ErrInsufficient = errors.New("not enough stock")
	ErrNegative     = errors.New("quantities cannot be negative")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("stock_items")}
}

// Create adds a stock line for article on item.FarmID.
func (s *Store) Create(ctx context.Context, item models.StockItem, article models.ArticleName) (models.StockItem, error) {
	if item.Quantity < 0 || item.MinQuantity < 0 {
		return models.StockItem{}, ErrNegative
	}
	now := time.Now().UTC()
	item.ID = primitive.NewObjectID()
	item.ArticleNameID = article.ID
	item.ArticleName = article.Name
	item.ArticleNameCI = text.Fold(article.Name)
	if item.Unit == "" {
		item.Unit = article.Unit
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, item); err != nil {
		if wafflemongo.IsDup(err) {
			return models.StockItem{}, ErrDuplicate
		}
		return models.StockItem{}, err
	}
	return item, nil
}

// GetOnFarm loads a stock line that must belong to farmID.
func (s *Store) GetOnFarm(ctx context.Context, farmID, id primitive.ObjectID) (models.StockItem, error) {
	var it models.StockItem
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": id, "farm_id": farmID}).Decode(&it)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.StockItem{}, ErrNotFound
	}
	return it, err
}

// ListByFarm returns the stock of farmID ordered by article name.
func (s *Store) ListByFarm(ctx context.Context, farmID primitive.ObjectID) ([]models.StockItem, error) {
	return s.Find(ctx, bson.M{"farm_id": farmID})
}

// Low returns the items at or below their minimum, on farmID or everywhere.
func (s *Store) Low(ctx context.Context, farmID *primitive.ObjectID) ([]models.StockItem, error) {
	filter := bson.M{"$expr": bson.M{"$lte": bson.A{"$quantity", "$min_quantity"}}}
	if farmID != nil {
		filter["farm_id"] = *farmID
	}
	return s.Find(ctx, filter)
}

// Find returns stock lines matching filter ordered by farm and article.
func (s *Store) Find(ctx context.Context, filter bson.M) ([]models.StockItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "farm_id", Value: 1}, {Key: "article_name_ci", Value: 1}})
	var out []models.StockItem
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

// SetMinimum changes the alert threshold and unit of a stock line.
func (s *Store) SetMinimum(ctx context.Context, farmID, id primitive.ObjectID, min int, unit string) error {
	if min < 0 {
		return ErrNegative
	}
	set := bson.M{"min_quantity": min, "updated_at": time.Now().UTC()}
	if unit != "" {
		set["unit"] = unit
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

// Adjust adds delta to the quantity of a stock line. A result below zero
// is refused without modifying the document.
func (s *Store) Adjust(ctx context.Context, farmID, id primitive.ObjectID, delta int) (models.StockItem, error) {
	return s.adjust(ctx, bson.M{"_id": id, "farm_id": farmID}, delta)
}

// Take removes qty of articleID from farmID's stock.
func (s *Store) Take(ctx context.Context, farmID, articleID primitive.ObjectID, qty int) (models.StockItem, error) {
	return s.adjust(ctx, bson.M{"farm_id": farmID, "article_name_id": articleID}, -qty)
}

func (s *Store) adjust(ctx context.Context, filter bson.M, delta int) (models.StockItem, error) {
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	var out models.StockItem
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{
			"$inc": bson.M{"quantity": delta},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.StockItem{}, err
	}
	delete(filter, "quantity")
	n, cerr := s.c.CountDocuments(ctx, filter)
	if cerr != nil {
		return models.StockItem{}, cerr
	}
	if n == 0 {
		return models.StockItem{}, ErrNotFound
	}
	return models.StockItem{}, ErrInsufficient
}

// Delete removes a stock line from farmID.
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
