// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a signed-in user can hold.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
)

// User is someone who signs in to DormHub.
//
// NOTE:
//   - Superadmins are global and have no FarmID.
//   - Admins manage exactly one farm (FarmID is required).
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName     string              `bson:"full_name" json:"full_name"`
	FullNameCI   string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string              `bson:"email" json:"email"`
	Role         string              `bson:"role" json:"role"`
	Status       string              `bson:"status" json:"status"`
	FarmID       *primitive.ObjectID `bson:"farm_id,omitempty" json:"farm_id,omitempty"`
	PasswordHash string              `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsSuperAdmin reports whether the user holds the global role.
func (u User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }
