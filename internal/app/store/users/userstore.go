package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/paging"
	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when another user already has the email.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	ErrNotFound       = errors.New("user not found")
	ErrBadRole        = errors.New(`role must be "superadmin"|"admin"`)
	ErrBadStatus      = errors.New(`status must be "active"|"disabled"`)
	ErrFarmNeeded     = errors.New("admin must have farm_id")
	ErrFarmNotAllowed = errors.New("superadmin must not have farm_id")
	ErrWrongPassword  = errors.New("wrong password")
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword compares password with the user's stored hash.
func CheckPassword(u models.User, password string) error {
	if u.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func validateScope(role string, farmID *primitive.ObjectID) error {
	switch role {
	case models.RoleSuperAdmin:
		if farmID != nil {
			return ErrFarmNotAllowed
		}
	case models.RoleAdmin:
		if farmID == nil {
			return ErrFarmNeeded
		}
	default:
		return ErrBadRole
	}
	return nil
}

func validStatus(s string) bool {
	return s == models.StatusActive || s == models.StatusDisabled
}

// Create inserts a new user after normalizing & validating fields.
// An empty password leaves the account without password login.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	if err := validateScope(u.Role, u.FarmID); err != nil {
		return models.User{}, err
	}
	if !validStatus(u.Status) {
		return models.User{}, ErrBadStatus
	}
	if password != "" {
		h, err := HashPassword(password)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = h
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	Role   string
	FarmID *primitive.ObjectID
	Status string
	Search string
}

// List returns one keyset page of users ordered by folded full name.
func (s *Store) List(ctx context.Context, f ListFilter, pg paging.Request) ([]models.User, paging.Page, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.FarmID != nil {
		filter["farm_id"] = *f.FarmID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if q := text.Fold(f.Search); q != "" {
		filter["full_name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(q)}
	}
	pg.Apply(filter, "full_name_ci")

	var rows []models.User
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, filter, pg.FindOptions("full_name_ci"))
		if err != nil {
			return err
		}
		rows = nil
		return cur.All(ctx, &rows)
	})
	if err != nil {
		return nil, paging.Page{}, err
	}
	rows, page := paging.Finish(pg, rows,
		func(u models.User) string { return u.FullNameCI },
		func(u models.User) primitive.ObjectID { return u.ID })
	return rows, page, nil
}

// Update holds the mutable profile fields of a user.
type Update struct {
	FullName string
	Email    string
	Role     string
	FarmID   *primitive.ObjectID
	Status   string
}

// Update replaces the profile fields of a user.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	if err := validateScope(upd.Role, upd.FarmID); err != nil {
		return err
	}
	if !validStatus(upd.Status) {
		return ErrBadStatus
	}
	name := normalize.Name(upd.FullName)
	update := bson.M{"$set": bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"email":        normalize.Email(upd.Email),
		"role":         upd.Role,
		"status":       upd.Status,
		"updated_at":   time.Now().UTC(),
	}}
	if upd.FarmID != nil {
		update["$set"].(bson.M)["farm_id"] = *upd.FarmID
	} else {
		update["$unset"] = bson.M{"farm_id": ""}
	}

	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword replaces the password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	h, err := HashPassword(password)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"password_hash": h, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus enables or disables a user.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if !validStatus(status) {
		return ErrBadStatus
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByFarm returns the number of users assigned to farmID.
func (s *Store) CountByFarm(ctx context.Context, farmID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"farm_id": farmID})
}

// EnsureSuperAdmin creates a superadmin with the given email when no user
// has it yet. It never modifies an existing account.
func (s *Store) EnsureSuperAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	_, err = s.Create(ctx, models.User{
		FullName: "Super Admin",
		Email:    email,
		Role:     models.RoleSuperAdmin,
	}, password)
	if errors.Is(err, ErrDuplicateEmail) {
		return false, nil
	}
	return err == nil, err
}

// Names returns a map of user id to full name for ids.
func (s *Store) Names(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return err
		}
		users = nil
		return cur.All(ctx, &users)
	})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.FullName
	}
	return out, nil
}
