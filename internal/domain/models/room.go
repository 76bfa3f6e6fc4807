// internal/domain/models/room.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room genders. A mixed room accepts workers of either gender.
const (
	RoomMale   = "male"
	RoomFemale = "female"
	RoomMixed  = "mixed"
)

// Room is a dormitory room on a farm.
//
// OccupantIDs is the source of truth for occupancy; updates that add an
// occupant are guarded so len(OccupantIDs) never exceeds Capacity.
type Room struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	FarmID       primitive.ObjectID   `bson:"farm_id" json:"farm_id"`
	Number       string               `bson:"number" json:"number"`
	Gender       string               `bson:"gender" json:"gender"`
	Capacity     int                  `bson:"capacity" json:"capacity"`
	OccupantIDs  []primitive.ObjectID `bson:"occupant_ids" json:"occupant_ids"`
	SupervisorID *primitive.ObjectID  `bson:"supervisor_id,omitempty" json:"supervisor_id,omitempty"`
	Status       string               `bson:"status" json:"status"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// FreeBeds returns the number of beds not yet taken.
func (r Room) FreeBeds() int {
	n := r.Capacity - len(r.OccupantIDs)
	if n < 0 {
		return 0
	}
	return n
}

// Accepts reports whether a worker of the given gender may sleep here.
func (r Room) Accepts(gender string) bool {
	if r.Gender == RoomMixed {
		return gender == GenderMale || gender == GenderFemale
	}
	return r.Gender == gender
}
