package farmstore_test

import (
	"errors"
	"testing"

	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	"github.com/dalemusser/dormhub/internal/app/system/indexes"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := farmstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Farm{Name: "Ferme  Él Amal", Code: "EA", Location: "Agadir"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Name != "Ferme Él Amal" {
		t.Errorf("Name = %q", created.Name)
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if created.Status != models.StatusActive {
		t.Errorf("Status = %q, want active", created.Status)
	}
}

func TestStore_Create_DuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := farmstore.New(db)

	if _, err := store.Create(ctx, models.Farm{Name: "Ain Farm"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := store.Create(ctx, models.Farm{Name: "AIN farm"}); !errors.Is(err, farmstore.ErrDuplicateFarm) {
		t.Errorf("duplicate Create error = %v, want ErrDuplicateFarm", err)
	}
}

func TestStore_UpdateAndNames(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := farmstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f, err := store.Create(ctx, models.Farm{Name: "Old Name", Location: "Taroudant"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Update(ctx, f.ID, models.Farm{Name: "New Name"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "New Name" || got.Location != "Taroudant" {
		t.Errorf("after Update = %+v", got)
	}

	names, err := store.Names(ctx, []primitive.ObjectID{f.ID})
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if names[f.ID] != "New Name" {
		t.Errorf("Names = %v", names)
	}

	if err := store.Update(ctx, primitive.NewObjectID(), models.Farm{Name: "x"}); !errors.Is(err, farmstore.ErrNotFound) {
		t.Errorf("Update(missing) = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete_RefusedWhileInUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := farmstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	farm := fx.CreateFarm(ctx, "Busy Farm")
	room := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 2)

	if err := store.Delete(ctx, farm.ID); !errors.Is(err, farmstore.ErrInUse) {
		t.Fatalf("Delete(in use) = %v, want ErrInUse", err)
	}
	if _, err := db.Collection("rooms").DeleteOne(ctx, bson.M{"_id": room.ID}); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if err := store.Delete(ctx, farm.ID); err != nil {
		t.Fatalf("Delete(empty farm) = %v", err)
	}
	if _, err := store.GetByID(ctx, farm.ID); !errors.Is(err, farmstore.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrNotFound", err)
	}
}
