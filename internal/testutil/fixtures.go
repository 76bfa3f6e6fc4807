package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures inserts test documents straight into the collections.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database { return f.db }

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateFarm inserts an active farm.
func (f *Fixtures) CreateFarm(ctx context.Context, name string) models.Farm {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	farm := models.Farm{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Code:      name,
		Location:  "Souss",
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "farms", farm)
	return farm
}

// CreateUser inserts a user with the given password (may be empty).
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role, password string, farmID *primitive.ObjectID) models.User {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      email,
		Role:       role,
		Status:     models.StatusActive,
		FarmID:     farmID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			f.t.Fatalf("hash password: %v", err)
		}
		u.PasswordHash = string(hash)
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin inserts an admin of farmID.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string, farmID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin, "", &farmID)
}

// CreateRoom inserts an empty active room.
func (f *Fixtures) CreateRoom(ctx context.Context, farmID primitive.ObjectID, number, gender string, capacity int) models.Room {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	room := models.Room{
		ID:          primitive.NewObjectID(),
		FarmID:      farmID,
		Number:      number,
		Gender:      gender,
		Capacity:    capacity,
		OccupantIDs: []primitive.ObjectID{},
		Status:      models.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "rooms", room)
	return room
}

// CreateArticle inserts a catalogue article.
func (f *Fixtures) CreateArticle(ctx context.Context, name, unit string) models.ArticleName {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	a := models.ArticleName{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Category:  "bedding",
		Unit:      unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "article_names", a)
	return a
}

// CreateStock inserts a stock line for article on farmID.
func (f *Fixtures) CreateStock(ctx context.Context, farmID primitive.ObjectID, article models.ArticleName, qty, min int) models.StockItem {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := models.StockItem{
		ID:            primitive.NewObjectID(),
		FarmID:        farmID,
		ArticleNameID: article.ID,
		ArticleName:   article.Name,
		ArticleNameCI: article.NameCI,
		Quantity:      qty,
		Unit:          article.Unit,
		MinQuantity:   min,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "stock_items", s)
	return s
}

// CreateWorker inserts an active worker with one open stay. When room is
// non-nil the worker is also added to the room's occupants.
func (f *Fixtures) CreateWorker(ctx context.Context, farmID primitive.ObjectID, name, cin, gender string, room *models.Room) models.Worker {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := now.AddDate(0, -1, 0).Truncate(24 * time.Hour)
	age := 30
	w := models.Worker{
		ID:         primitive.NewObjectID(),
		FarmID:     farmID,
		FullName:   name,
		FullNameCI: text.Fold(name),
		CIN:        cin,
		Gender:     gender,
		Age:        &age,
		Status:     models.WorkerActive,
		EntryDate:  entry,
		History:    []models.Stay{{FarmID: farmID, Start: entry, Reason: models.ReasonCreated}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if room != nil {
		w.RoomID = &room.ID
		w.RoomNumber = room.Number
		w.History[0].RoomID = &room.ID
		if _, err := f.db.Collection("rooms").UpdateByID(ctx, room.ID,
			map[string]any{"$addToSet": map[string]any{"occupant_ids": w.ID}}); err != nil {
			f.t.Fatalf("add occupant: %v", err)
		}
		room.OccupantIDs = append(room.OccupantIDs, w.ID)
	}
	f.insert(ctx, "workers", w)
	return w
}

// CreateSupervisor inserts a supervisor on farmID.
func (f *Fixtures) CreateSupervisor(ctx context.Context, farmID primitive.ObjectID, name string) models.Supervisor {
	f.t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := models.Supervisor{
		ID:         primitive.NewObjectID(),
		FarmID:     farmID,
		FullName:   name,
		FullNameCI: text.Fold(name),
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "supervisors", s)
	return s
}
