// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name and ObjectID.
// ok is false when nobody is signed in or the session id is malformed.
func UserCtx(r *http.Request) (role, name string, userID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(u.Role), u.Name, userID, true
}

// IsSuperAdmin reports whether the request's user is a superadmin.
func IsSuperAdmin(r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.IsSuperAdmin()
}

// UserFarmID returns the farm an admin manages. Superadmins and
// signed-out requests get ok=false.
func UserFarmID(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	return u.FarmObjectID()
}

// CanAccessFarm reports whether the request's user may act on farmID.
func CanAccessFarm(r *http.Request, farmID primitive.ObjectID) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.CanAccessFarm(farmID)
}

// FarmScope returns the farm filter to apply to list queries: nil for
// superadmins (everything), the admin's farm otherwise. ok is false when
// the user may see nothing.
func FarmScope(r *http.Request) (farm *primitive.ObjectID, ok bool) {
	u, signed := auth.CurrentUser(r)
	if !signed {
		return nil, false
	}
	if u.IsSuperAdmin() {
		return nil, true
	}
	id, has := u.FarmObjectID()
	if !has {
		return nil, false
	}
	return &id, true
}
