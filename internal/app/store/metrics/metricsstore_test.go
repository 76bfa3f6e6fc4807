package metricsstore_test

import (
	"testing"

	metricsstore "github.com/dalemusser/dormhub/internal/app/store/metrics"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFetchCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got := metricsstore.FetchCounts(ctx, db)
	if got != (metricsstore.Counts{}) {
		t.Errorf("FetchCounts on empty db = %+v, want zero", got)
	}
}

func TestFetchCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	farm := fx.CreateFarm(ctx, "Ain Farm")
	other := fx.CreateFarm(ctx, "Oued Farm")
	room := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 4)
	fx.CreateWorker(ctx, farm.ID, "Ali Ben", "AB1234", models.GenderMale, &room)
	departed := fx.CreateWorker(ctx, farm.ID, "Omar Ben", "AB9999", models.GenderMale, nil)
	if _, err := db.Collection("workers").UpdateByID(ctx, departed.ID,
		bson.M{"$set": bson.M{"status": models.WorkerDeparted}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	for _, st := range []string{models.TransferPending, models.TransferCompleted} {
		if _, err := db.Collection("transfers").InsertOne(ctx, models.Transfer{
			ID: primitive.NewObjectID(), FromFarmID: farm.ID, ToFarmID: other.ID, Status: st,
		}); err != nil {
			t.Fatalf("insert transfer: %v", err)
		}
	}

	got := metricsstore.FetchCounts(ctx, db)
	want := metricsstore.Counts{Farms: 2, Rooms: 1, ActiveWorkers: 1, OpenTransfers: 1}
	if got != want {
		t.Errorf("FetchCounts = %+v, want %+v", got, want)
	}
}
