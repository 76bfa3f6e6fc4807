package indexes_test

import (
	"testing"

	"github.com/dalemusser/dormhub/internal/app/system/indexes"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	for coll, want := range indexes.Names() {
		cur, err := db.Collection(coll).Indexes().List(ctx)
		if err != nil {
			t.Fatalf("list indexes on %s: %v", coll, err)
		}
		got := map[string]bool{}
		for cur.Next(ctx) {
			var ix bson.M
			if err := cur.Decode(&ix); err != nil {
				continue
			}
			if name, ok := ix["name"].(string); ok {
				got[name] = true
			}
		}
		cur.Close(ctx)
		for _, name := range want {
			if !got[name] {
				t.Errorf("%s: missing index %q", coll, name)
			}
		}
	}
}

func TestEnsureAll_RoomNumberUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	farm := fx.CreateFarm(ctx, "Ain Farm")
	fx.CreateRoom(ctx, farm.ID, "A1", "male", 4)

	_, err := db.Collection("rooms").InsertOne(ctx, bson.M{"farm_id": farm.ID, "number": "A1"})
	if err == nil {
		t.Fatal("expected duplicate key error for second room A1 on the same farm")
	}
}
