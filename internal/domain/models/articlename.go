// internal/domain/models/articlename.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArticleName is an entry of the global article catalogue (blanket,
// mattress, boots...). Stock items on each farm reference it.
type ArticleName struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"`
	Category  string             `bson:"category" json:"category"`
	Unit      string             `bson:"unit" json:"unit"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
