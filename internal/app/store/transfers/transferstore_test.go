package transferstore_test

import (
	"errors"
	"testing"
	"time"

	transferstore "github.com/dalemusser/dormhub/internal/app/store/transfers"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTransfer(from, to primitive.ObjectID, workers ...primitive.ObjectID) models.Transfer {
	t := models.Transfer{FromFarmID: from, ToFarmID: to, CreatedBy: primitive.NewObjectID()}
	for _, w := range workers {
		t.Items = append(t.Items, models.TransferItem{WorkerID: w, Gender: models.GenderMale})
	}
	return t
}

func TestStore_TransitionRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transferstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	tr, err := store.Create(ctx, newTransfer(a, b, primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tr.Status != models.TransferPending {
		t.Fatalf("Status = %q, want pending", tr.Status)
	}

	if _, err := store.Complete(ctx, tr.ID, tr.UpdatedAt, time.Now()); !errors.Is(err, transferstore.ErrInvalidTransition) {
		t.Fatalf("Complete(pending) = %v, want ErrInvalidTransition", err)
	}

	room := primitive.NewObjectID()
	items := tr.Items
	items[0].RoomID = &room
	got, err := store.AssignRooms(ctx, tr.ID, items)
	if err != nil {
		t.Fatalf("AssignRooms: %v", err)
	}
	if got.Status != models.TransferRoomsAssigned || got.Items[0].RoomID == nil {
		t.Fatalf("after assign = %+v", got)
	}
	// Reassignment is allowed.
	again, err := store.AssignRooms(ctx, tr.ID, items)
	if err != nil {
		t.Fatalf("re-AssignRooms: %v", err)
	}

	// Completing a version older than the last assignment is refused.
	if _, err := store.Complete(ctx, tr.ID, again.UpdatedAt.Add(-time.Second), time.Now().UTC()); !errors.Is(err, transferstore.ErrStale) {
		t.Fatalf("Complete(stale) = %v, want ErrStale", err)
	}

	got, err = store.Complete(ctx, tr.ID, again.UpdatedAt, time.Now().UTC())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != models.TransferCompleted || got.CompletedAt == nil {
		t.Fatalf("after complete = %+v", got)
	}

	if _, err := store.Close(ctx, tr.ID, models.TransferCancelled, "late"); !errors.Is(err, transferstore.ErrInvalidTransition) {
		t.Errorf("Cancel(completed) = %v, want ErrInvalidTransition", err)
	}
	if _, err := store.Close(ctx, tr.ID, models.TransferCompleted, ""); !errors.Is(err, transferstore.ErrInvalidTransition) {
		t.Errorf("Close(completed status) = %v, want ErrInvalidTransition", err)
	}
	if _, err := store.AssignRooms(ctx, primitive.NewObjectID(), items); !errors.Is(err, transferstore.ErrNotFound) {
		t.Errorf("AssignRooms(missing) = %v, want ErrNotFound", err)
	}
}

func TestStore_RejectStoresReason(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transferstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tr, err := store.Create(ctx, newTransfer(primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.Close(ctx, tr.ID, models.TransferRejected, "no beds")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got.Status != models.TransferRejected || got.Reason != "no beds" {
		t.Errorf("after reject = %+v", got)
	}
}

func TestStore_ListAndOpenForWorkers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transferstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	w1, w2 := primitive.NewObjectID(), primitive.NewObjectID()
	out1, _ := store.Create(ctx, newTransfer(a, b, w1))
	in1, _ := store.Create(ctx, newTransfer(c, a, w2))
	if _, err := store.Close(ctx, in1.ID, models.TransferCancelled, ""); err != nil {
		t.Fatalf("Close: %v", err)
	}

	outgoing, err := store.List(ctx, transferstore.Filter{FarmID: &a, Direction: transferstore.Outgoing})
	if err != nil {
		t.Fatalf("List outgoing: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0].ID != out1.ID {
		t.Errorf("outgoing = %+v", outgoing)
	}
	both, _ := store.List(ctx, transferstore.Filter{FarmID: &a})
	if len(both) != 2 {
		t.Errorf("both directions = %d, want 2", len(both))
	}
	pending, _ := store.List(ctx, transferstore.Filter{Status: models.TransferPending})
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}

	open, err := store.OpenForWorkers(ctx, []primitive.ObjectID{w1, w2}, primitive.NilObjectID)
	if err != nil {
		t.Fatalf("OpenForWorkers: %v", err)
	}
	if len(open) != 1 || open[0].ID != out1.ID {
		t.Errorf("open = %+v, want only out1", open)
	}
	open, _ = store.OpenForWorkers(ctx, []primitive.ObjectID{w1}, out1.ID)
	if len(open) != 0 {
		t.Errorf("open excluding out1 = %+v", open)
	}
}

func TestStore_StaleOpen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transferstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old, _ := store.Create(ctx, newTransfer(primitive.NewObjectID(), primitive.NewObjectID()))
	if _, err := db.Collection("transfers").UpdateByID(ctx, old.ID,
		bson.M{"$set": bson.M{"created_at": time.Now().UTC().Add(-96 * time.Hour)}}); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if _, err := store.Create(ctx, newTransfer(primitive.NewObjectID(), primitive.NewObjectID())); err != nil {
		t.Fatalf("Create fresh: %v", err)
	}

	stale, err := store.StaleOpen(ctx, time.Now().UTC().Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("StaleOpen: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != old.ID {
		t.Errorf("stale = %+v", stale)
	}
}
