package roomstore_test

import (
	"errors"
	"testing"

	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	"github.com/dalemusser/dormhub/internal/app/system/indexes"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeNumber(t *testing.T) {
	tests := map[string]string{
		"a1":      "A1",
		"  b 12 ": "B 12",
		"c   3":   "C 3",
	}
	for in, want := range tests {
		if got := roomstore.NormalizeNumber(in); got != want {
			t.Errorf("NormalizeNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := roomstore.New(db)
	farm := primitive.NewObjectID()

	r, err := store.Create(ctx, models.Room{FarmID: farm, Number: "a1", Gender: models.RoomMale, Capacity: 4})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Number != "A1" || r.Status != models.StatusActive || r.OccupantIDs == nil {
		t.Errorf("created = %+v", r)
	}

	if _, err := store.Create(ctx, models.Room{FarmID: farm, Number: "A1", Gender: models.RoomMale, Capacity: 2}); !errors.Is(err, roomstore.ErrDuplicateNumber) {
		t.Errorf("duplicate Create = %v, want ErrDuplicateNumber", err)
	}
	if _, err := store.Create(ctx, models.Room{FarmID: farm, Number: "B1", Gender: "other", Capacity: 2}); !errors.Is(err, roomstore.ErrBadGender) {
		t.Errorf("bad gender = %v", err)
	}
	if _, err := store.Create(ctx, models.Room{FarmID: farm, Number: "B2", Gender: models.RoomMixed, Capacity: 0}); !errors.Is(err, roomstore.ErrBadCapacity) {
		t.Errorf("bad capacity = %v", err)
	}
}

func TestStore_AddOccupant_CapacityGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := roomstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	farm := fx.CreateFarm(ctx, "Ain Farm")
	room := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 2)
	w1, w2, w3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	if err := store.AddOccupant(ctx, room.ID, w1); err != nil {
		t.Fatalf("add w1: %v", err)
	}
	if err := store.AddOccupant(ctx, room.ID, w2); err != nil {
		t.Fatalf("add w2: %v", err)
	}
	if err := store.AddOccupant(ctx, room.ID, w3); !errors.Is(err, roomstore.ErrRoomFull) {
		t.Fatalf("add w3 = %v, want ErrRoomFull", err)
	}
	// Re-adding an existing occupant to a full room is fine.
	if err := store.AddOccupant(ctx, room.ID, w1); err != nil {
		t.Fatalf("re-add w1 = %v", err)
	}
	if err := store.AddOccupant(ctx, primitive.NewObjectID(), w3); !errors.Is(err, roomstore.ErrNotFound) {
		t.Fatalf("add to missing room = %v, want ErrNotFound", err)
	}

	if err := store.RemoveOccupant(ctx, room.ID, w2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.AddOccupant(ctx, room.ID, w3); err != nil {
		t.Fatalf("add w3 after remove: %v", err)
	}
	got, _ := store.GetByID(ctx, room.ID)
	if len(got.OccupantIDs) != 2 {
		t.Errorf("occupants = %v, want 2", got.OccupantIDs)
	}
}

func TestStore_Update_Guards(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := roomstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	farm := fx.CreateFarm(ctx, "Ain Farm")
	room := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 3)
	fx.CreateWorker(ctx, farm.ID, "Ali", "AB1001", models.GenderMale, &room)
	fx.CreateWorker(ctx, farm.ID, "Omar", "AB1002", models.GenderMale, &room)

	tests := []struct {
		name string
		upd  roomstore.Update
		want error
	}{
		{"capacity below occupants", roomstore.Update{Number: "A1", Gender: models.RoomMale, Capacity: 1}, roomstore.ErrBelowOccupants},
		{"occupied to female", roomstore.Update{Number: "A1", Gender: models.RoomFemale, Capacity: 3}, roomstore.ErrGenderMismatch},
		{"occupied to mixed", roomstore.Update{Number: "A1", Gender: models.RoomMixed, Capacity: 3}, nil},
		{"capacity equal occupants", roomstore.Update{Number: "A1", Gender: models.RoomMixed, Capacity: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Update(ctx, farm.ID, room.ID, tt.upd)
			if !errors.Is(err, tt.want) {
				t.Errorf("Update() = %v, want %v", err, tt.want)
			}
		})
	}

	other := primitive.NewObjectID()
	if err := store.Update(ctx, other, room.ID, roomstore.Update{Number: "A1", Gender: models.RoomMixed, Capacity: 5}); !errors.Is(err, roomstore.ErrNotFound) {
		t.Errorf("Update on other farm = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete_RefusedWhileOccupied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := roomstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	farm := fx.CreateFarm(ctx, "Ain Farm")
	room := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomFemale, 2)
	w := fx.CreateWorker(ctx, farm.ID, "Amina", "CD2001", models.GenderFemale, &room)

	if err := store.Delete(ctx, farm.ID, room.ID); !errors.Is(err, roomstore.ErrOccupied) {
		t.Fatalf("Delete(occupied) = %v, want ErrOccupied", err)
	}
	if err := store.RemoveFromAll(ctx, w.ID); err != nil {
		t.Fatalf("RemoveFromAll: %v", err)
	}
	if err := store.Delete(ctx, farm.ID, room.ID); err != nil {
		t.Fatalf("Delete(empty) = %v", err)
	}
	if err := store.Delete(ctx, farm.ID, room.ID); !errors.Is(err, roomstore.ErrNotFound) {
		t.Errorf("Delete(again) = %v, want ErrNotFound", err)
	}
}
