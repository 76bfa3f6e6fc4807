package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/dormhub/internal/app/store/audit"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), nil, "a@b.c")
	logger.Created(ctx, req, "room", primitive.NewObjectID(), nil, "12")
}

func TestLogger_Destinations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "db"})

	uid := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/", nil)
	logger.LoginSuccess(ctx, req, uid, nil, "a@b.c")

	actor := primitive.NewObjectID()
	farm := primitive.NewObjectID()
	req = auth.WithTestUser(req, &auth.SessionUser{ID: actor.Hex(), Role: "admin", FarmID: farm.Hex()})
	logger.Created(ctx, req, "worker", primitive.NewObjectID(), &farm, "Hamid")

	n, err := store.Count(ctx, audit.QueryFilter{Category: audit.CategoryAuth})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("auth events stored with config off: %d", n)
	}

	events, err := store.Query(ctx, audit.QueryFilter{ActorID: &actor})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("admin events = %d, want 1", len(events))
	}
	e := events[0]
	if e.Entity != "worker" || e.EventType != audit.EventCreated || e.Details["actor_role"] != "admin" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.FarmID == nil || *e.FarmID != farm {
		t.Errorf("farm id = %v", e.FarmID)
	}
}
