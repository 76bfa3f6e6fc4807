// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotifyTransferRequested = "transfer_requested"
	NotifyTransferCompleted = "transfer_completed"
	NotifyTransferRejected  = "transfer_rejected"
	NotifyTransferCancelled = "transfer_cancelled"
	NotifyConflictResolved  = "conflict_resolved"
	NotifyImportCommitted   = "import_committed"
	NotifyLowStock          = "low_stock"
)

// Notification is a message addressed to exactly one user. Messages sent
// to a group of recipients share a BatchID.
type Notification struct {
	ID             primitive.ObjectID  `bson:"_id" json:"id"`
	RecipientID    primitive.ObjectID  `bson:"recipient_id" json:"recipient_id"`
	FarmID         *primitive.ObjectID `bson:"farm_id,omitempty" json:"farm_id,omitempty"`
	Type           string              `bson:"type" json:"type"`
	Title          string              `bson:"title" json:"title"`
	Message        string              `bson:"message" json:"message"`
	Link           string              `bson:"link,omitempty" json:"link,omitempty"`
	BatchID        string              `bson:"batch_id" json:"batch_id"`
	Read           bool                `bson:"read" json:"read"`
	ReadAt         *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	Acknowledged   bool                `bson:"acknowledged" json:"acknowledged"`
	AcknowledgedAt *time.Time          `bson:"acknowledged_at,omitempty" json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}
