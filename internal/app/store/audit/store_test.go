package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/dormhub/internal/app/store/audit"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := primitive.NewObjectID()
	actor := primitive.NewObjectID()
	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &actor, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventCreated, Entity: "room", ActorID: &actor, FarmID: &farm, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventDeleted, Entity: "worker", ActorID: &actor, FarmID: &farm, Success: true,
			Timestamp: time.Now().UTC().Add(time.Minute)},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{FarmID: &farm})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("farm events = %d, want 2", len(got))
	}
	if got[0].EventType != audit.EventDeleted {
		t.Errorf("newest first: got %q", got[0].EventType)
	}
	if got[0].ID.IsZero() {
		t.Error("Log should assign an id")
	}

	n, err := store.Count(ctx, audit.QueryFilter{Category: audit.CategoryAdmin, Entity: "room"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("room events = %d, want 1", n)
	}
}
