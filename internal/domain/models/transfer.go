// internal/domain/models/transfer.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transfer statuses.
const (
	TransferPending       = "pending"
	TransferRoomsAssigned = "rooms_assigned"
	TransferCompleted     = "completed"
	TransferRejected      = "rejected"
	TransferCancelled     = "cancelled"
)

// TransferItem is one worker moving between farms. RoomID is set by the
// destination farm before the transfer can be committed.
type TransferItem struct {
	WorkerID primitive.ObjectID  `bson:"worker_id" json:"worker_id"`
	FullName string              `bson:"full_name" json:"full_name"`
	CIN      string              `bson:"cin" json:"cin"`
	Gender   string              `bson:"gender" json:"gender"`
	RoomID   *primitive.ObjectID `bson:"room_id,omitempty" json:"room_id,omitempty"`
}

// Transfer is a request to move workers from one farm to another.
type Transfer struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	FromFarmID  primitive.ObjectID `bson:"from_farm_id" json:"from_farm_id"`
	ToFarmID    primitive.ObjectID `bson:"to_farm_id" json:"to_farm_id"`
	Status      string             `bson:"status" json:"status"`
	Items       []TransferItem     `bson:"items" json:"items"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`
	Reason      string             `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

var transferTransitions = map[string][]string{
	TransferPending:       {TransferRoomsAssigned, TransferRejected, TransferCancelled},
	TransferRoomsAssigned: {TransferRoomsAssigned, TransferCompleted, TransferRejected, TransferCancelled},
}

// CanTransition reports whether a transfer may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transferTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether the transfer still awaits a decision.
func (t Transfer) IsOpen() bool {
	return t.Status == TransferPending || t.Status == TransferRoomsAssigned
}
