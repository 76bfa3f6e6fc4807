// internal/domain/models/securitycode.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Purposes a security code can authorize.
const (
	PurposeWorkerDelete    = "worker_delete"
	PurposeConflictResolve = "conflict_resolve"
	PurposeAny             = "any"
)

// SecurityCode authorizes destructive operations. Only the bcrypt hash
// of the code is stored; the plain code is shown once at creation.
type SecurityCode struct {
	ID         primitive.ObjectID  `bson:"_id" json:"id"`
	Label      string              `bson:"label" json:"label"`
	FarmID     *primitive.ObjectID `bson:"farm_id,omitempty" json:"farm_id,omitempty"`
	Purpose    string              `bson:"purpose" json:"purpose"`
	CodeHash   string              `bson:"code_hash" json:"-"`
	Active     bool                `bson:"active" json:"active"`
	ExpiresAt  *time.Time          `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedBy  primitive.ObjectID  `bson:"created_by" json:"created_by"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	LastUsedAt *time.Time          `bson:"last_used_at,omitempty" json:"last_used_at,omitempty"`
}

// Usable reports whether the code may be used at the given instant for
// the given purpose and farm (nil farm = any farm).
func (c SecurityCode) Usable(now time.Time, purpose string, farmID *primitive.ObjectID) bool {
	if !c.Active {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	if c.Purpose != PurposeAny && c.Purpose != purpose {
		return false
	}
	if c.FarmID != nil && (farmID == nil || *c.FarmID != *farmID) {
		return false
	}
	return true
}
