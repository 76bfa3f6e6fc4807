// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	userIDKey = "user_id"
	nameKey   = "user_name"
	emailKey  = "user_email"
	roleKey   = "user_role"
	farmKey   = "farm_id"
)

// SessionUser is the signed-in user carried in the request context.
// FarmID is empty for superadmins.
type SessionUser struct {
	ID     string
	Name   string
	Email  string
	Role   string
	FarmID string
}

// IsSuperAdmin reports whether the user has global access.
func (u *SessionUser) IsSuperAdmin() bool { return u != nil && u.Role == "superadmin" }

// ObjectID returns the user id, or NilObjectID when malformed.
func (u *SessionUser) ObjectID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// FarmObjectID returns the user's farm id and whether one is set.
func (u *SessionUser) FarmObjectID() (primitive.ObjectID, bool) {
	if u.FarmID == "" {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(u.FarmID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// CanAccessFarm reports whether the user may manage the given farm.
func (u *SessionUser) CanAccessFarm(farmID primitive.ObjectID) bool {
	if u == nil {
		return false
	}
	if u.IsSuperAdmin() {
		return true
	}
	own, ok := u.FarmObjectID()
	return ok && u.Role == "admin" && own == farmID
}

// UserFetcher reloads a user on every request so role changes and
// disabled accounts apply immediately. A nil result signs the user out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds the cookie store. An empty key is replaced by
// a random one, which invalidates sessions on restart; production
// configuration is expected to provide a key.
func NewSessionManager(key, name, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if name == "" {
		return nil, errors.New("session name is empty")
	}
	var secret []byte
	if key == "" {
		secret = securecookie.GenerateRandomKey(32)
		if secret == nil {
			return nil, errors.New("generate session key")
		}
		logger.Warn("no session key configured; using a random key for this process")
	} else {
		if len(key) < 32 {
			logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
		}
		secret = []byte(key)
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   86400 * 7,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher installs the per-request user loader.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// Store exposes the cookie store (logout copies its options).
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// GetSession returns the session; on decode failure a fresh session is
// returned together with the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// SignIn stores u in the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u *SessionUser) error {
	sess, _ := sm.GetSession(r)
	sess.Values[userIDKey] = u.ID
	sess.Values[nameKey] = u.Name
	sess.Values[emailKey] = u.Email
	sess.Values[roleKey] = u.Role
	sess.Values[farmKey] = u.FarmID
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed during logout", zap.Error(err))
	}
	opts := *sm.store.Options
	opts.MaxAge = -1
	sess.Options = &opts
	sess.Values = map[any]any{}
	return sess.Save(r, w)
}

// LoadSessionUser puts the signed-in user into the request context.
// With a fetcher installed the user is reloaded from the database.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.GetSession(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		id, _ := sess.Values[userIDKey].(string)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		var u *SessionUser
		if sm.fetcher != nil {
			u = sm.fetcher.FetchUser(r.Context(), id)
		} else {
			u = &SessionUser{
				ID:     id,
				Name:   str(sess, nameKey),
				Email:  str(sess, emailKey),
				Role:   str(sess, roleKey),
				FarmID: str(sess, farmKey),
			}
		}
		if u != nil {
			r = WithTestUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn answers 401 when no user is in context.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			respond.Error(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 when signed out and 403 when the role is not allowed.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "sign in required")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				respond.Error(w, http.StatusForbidden, "you do not have permission to do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFarmAccess guards routes with a {farmID} URL parameter: the
// user must be a superadmin or the admin of that farm.
func (sm *SessionManager) RequireFarmAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "sign in required")
			return
		}
		farmID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "farmID"))
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid farm id")
			return
		}
		if !u.CanAccessFarm(farmID) {
			respond.Error(w, http.StatusForbidden, "you do not manage this farm")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user in context, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// WithTestUser returns r carrying u. Used by the middleware and by tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

func str(s *sessions.Session, key string) string {
	v, _ := s.Values[key].(string)
	return v
}
