// internal/domain/models/farm.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Farm is a site that houses workers. NameCI is always stored for
// case/diacritic-insensitive sort and lookup.
type Farm struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"`
	Code      string             `bson:"code" json:"code"`
	Location  string             `bson:"location" json:"location"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
