package securitycodestore

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/retry"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// codeBytes is the entropy of a generated code (16 hex characters).
const codeBytes = 8

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

var (
	ErrNotFound    = errors.New("security code not found")
	ErrInvalidCode = errors.New("invalid or expired security code")
	ErrBadPurpose  = errors.New(`purpose must be "worker_delete"|"conflict_resolve"|"any"`)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("security_codes"), now: func() time.Time { return time.Now().UTC() }}
}

// Generate returns a new random plain-text code.
func Generate() (string, error) {
	b := securecookie.GenerateRandomKey(codeBytes)
	if b == nil {
		return "", errors.New("securitycodes: random source failed")
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func validPurpose(p string) bool {
	switch p {
	case models.PurposeWorkerDelete, models.PurposeConflictResolve, models.PurposeAny:
		return true
	}
	return false
}

// Create stores a new code and returns it with its plain text, which is
// never stored and cannot be recovered later.
func (s *Store) Create(ctx context.Context, c models.SecurityCode) (models.SecurityCode, string, error) {
	if !validPurpose(c.Purpose) {
		return models.SecurityCode{}, "", ErrBadPurpose
	}
	plain, err := Generate()
	if err != nil {
		return models.SecurityCode{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return models.SecurityCode{}, "", err
	}
	c.ID = primitive.NewObjectID()
	c.CodeHash = string(hash)
	c.Active = true
	c.CreatedAt = s.now()
	c.LastUsedAt = nil
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.SecurityCode{}, "", err
	}
	return c, plain, nil
}

// List returns all codes, newest first.
func (s *Store) List(ctx context.Context) ([]models.SecurityCode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var out []models.SecurityCode
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		out = nil
		return cur.All(ctx, &out)
	})
	return out, err
}

// Deactivate disables a code without deleting its history.
func (s *Store) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Verify checks code against the active codes usable for purpose on farmID
// (nil = no particular farm) and records its use.
func (s *Store) Verify(ctx context.Context, code, purpose string, farmID *primitive.ObjectID) (models.SecurityCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.SecurityCode{}, ErrInvalidCode
	}
	var candidates []models.SecurityCode
	err := retry.DoDefault(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, bson.M{
			"active":  true,
			"purpose": bson.M{"$in": bson.A{purpose, models.PurposeAny}},
		})
		if err != nil {
			return err
		}
		candidates = nil
		return cur.All(ctx, &candidates)
	})
	if err != nil {
		return models.SecurityCode{}, err
	}

	now := s.now()
	for _, c := range candidates {
		if !c.Usable(now, purpose, farmID) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
			continue
		}
		if _, err := s.c.UpdateByID(ctx, c.ID, bson.M{"$set": bson.M{"last_used_at": now}}); err != nil {
			return models.SecurityCode{}, err
		}
		c.LastUsedAt = &now
		return c, nil
	}
	return models.SecurityCode{}, ErrInvalidCode
}
