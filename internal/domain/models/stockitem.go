// internal/domain/models/stockitem.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockItem is the quantity of one article held by one farm.
// ArticleName is denormalized from the catalogue for display and matching.
type StockItem struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	FarmID        primitive.ObjectID `bson:"farm_id" json:"farm_id"`
	ArticleNameID primitive.ObjectID `bson:"article_name_id" json:"article_name_id"`
	ArticleName   string             `bson:"article_name" json:"article_name"`
	ArticleNameCI string             `bson:"article_name_ci" json:"-"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	Unit          string             `bson:"unit" json:"unit"`
	MinQuantity   int                `bson:"min_quantity" json:"min_quantity"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsLow reports whether the item is at or below its alert threshold.
func (s StockItem) IsLow() bool { return s.Quantity <= s.MinQuantity }
