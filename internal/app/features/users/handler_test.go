package users_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/features/users"
	"github.com/dalemusser/dormhub/internal/app/system/indexes"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*users.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	return users.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), testutil.NewFixtures(t, db)
}

func TestHandleCreate(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	super := testutil.SuperAdminUser()

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"admin with farm", map[string]string{"full_name": "Nadia", "email": "nadia@x.io", "role": "admin", "farm_id": farm.ID.Hex(), "password": "longenough"}, http.StatusCreated},
		{"duplicate email", map[string]string{"full_name": "Nadia 2", "email": "NADIA@x.io", "role": "admin", "farm_id": farm.ID.Hex(), "password": "longenough"}, http.StatusConflict},
		{"admin without farm", map[string]string{"full_name": "Omar", "email": "omar@x.io", "role": "admin", "password": "longenough"}, http.StatusUnprocessableEntity},
		{"admin with unknown farm", map[string]string{"full_name": "Omar", "email": "omar@x.io", "role": "admin", "farm_id": primitive.NewObjectID().Hex(), "password": "longenough"}, http.StatusBadRequest},
		{"superadmin with farm", map[string]string{"full_name": "Root", "email": "root@x.io", "role": "superadmin", "farm_id": farm.ID.Hex(), "password": "longenough"}, http.StatusBadRequest},
		{"superadmin", map[string]string{"full_name": "Root", "email": "root@x.io", "role": "superadmin", "password": "longenough"}, http.StatusCreated},
		{"short password", map[string]string{"full_name": "Lina", "email": "lina@x.io", "role": "superadmin", "password": "short"}, http.StatusUnprocessableEntity},
		{"unknown role", map[string]string{"full_name": "Lina", "email": "lina@x.io", "role": "owner", "password": "longenough"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleCreate(rec, testutil.WithUser(testutil.JSONRequest(t, "POST", "/users", tt.body), super))
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}

func TestServeList_FilterByFarm(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := fx.CreateFarm(ctx, "Farm A")
	b := fx.CreateFarm(ctx, "Farm B")
	fx.CreateAdmin(ctx, "Admin A", "a@x.io", a.ID)
	fx.CreateAdmin(ctx, "Admin B", "b@x.io", b.ID)

	req := httptest.NewRequest("GET", "/users?farm_id="+a.ID.Hex(), nil)
	rec := httptest.NewRecorder()
	handler.ServeList(rec, testutil.WithUser(req, testutil.SuperAdminUser()))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var body struct {
		Users []models.User `json:"users"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if len(body.Users) != 1 || body.Users[0].Email != "a@x.io" {
		t.Errorf("users = %+v", body.Users)
	}
}

func TestSelfProtection(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fx.CreateUser(ctx, "Root", "root@x.io", models.RoleSuperAdmin, "longenough", nil)
	user := testutil.FromUser(me.ID, me.FullName, me.Role, nil)

	req := testutil.WithChiURLParam(httptest.NewRequest("POST", "/", nil), "id", me.ID.Hex())
	rec := httptest.NewRecorder()
	handler.HandleDisable(rec, testutil.WithUser(req, user))
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	req = testutil.WithChiURLParam(httptest.NewRequest("DELETE", "/", nil), "id", me.ID.Hex())
	rec = httptest.NewRecorder()
	handler.HandleDelete(rec, testutil.WithUser(req, user))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
}

func TestHandleUpdate_SwitchToSuperadminClearsFarm(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	admin := fx.CreateAdmin(ctx, "Admin A", "a@x.io", farm.ID)

	req := testutil.JSONRequest(t, "PUT", "/", map[string]string{
		"full_name": "Admin Promoted", "email": "a@x.io", "role": "superadmin", "status": "active",
	})
	req = testutil.WithUser(testutil.WithChiURLParam(req, "id", admin.ID.Hex()), testutil.SuperAdminUser())
	rec := httptest.NewRecorder()
	handler.HandleUpdate(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var u models.User
	testutil.DecodeJSON(t, rec, &u)
	if u.Role != models.RoleSuperAdmin || u.FarmID != nil || u.FullName != "Admin Promoted" {
		t.Errorf("user = %+v", u)
	}
}

func TestHandleDelete(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	admin := fx.CreateAdmin(ctx, "Admin A", "a@x.io", farm.ID)
	super := testutil.SuperAdminUser()

	for _, want := range []int{http.StatusNoContent, http.StatusNotFound} {
		req := testutil.WithChiURLParam(httptest.NewRequest("DELETE", "/", nil), "id", admin.ID.Hex())
		rec := httptest.NewRecorder()
		handler.HandleDelete(rec, testutil.WithUser(req, super))
		testutil.AssertStatus(t, rec, want)
	}
}
