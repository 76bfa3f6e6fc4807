// internal/domain/models/supervisor.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Supervisor oversees rooms on a farm. Supervisors do not sign in.
type Supervisor struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	FarmID     primitive.ObjectID `bson:"farm_id" json:"farm_id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Phone      string             `bson:"phone" json:"phone"`
	CIN        string             `bson:"cin" json:"cin"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
