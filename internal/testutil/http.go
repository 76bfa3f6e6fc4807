package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser is the signed-in user injected into handler tests.
type TestUser struct {
	ID     string
	Name   string
	Email  string
	Role   string
	FarmID string
}

// SuperAdminUser returns a superadmin TestUser.
func SuperAdminUser() TestUser {
	return TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Superadmin",
		Email: "super@test.com",
		Role:  "superadmin",
	}
}

// AdminUser returns an admin TestUser managing farmID.
func AdminUser(farmID primitive.ObjectID) TestUser {
	return TestUser{
		ID:     primitive.NewObjectID().Hex(),
		Name:   "Test Admin",
		Email:  "admin@test.com",
		Role:   "admin",
		FarmID: farmID.Hex(),
	}
}

// FromUser builds a TestUser for a stored user.
func FromUser(id primitive.ObjectID, name, role string, farmID *primitive.ObjectID) TestUser {
	u := TestUser{ID: id.Hex(), Name: name, Role: role}
	if farmID != nil {
		u.FarmID = farmID.Hex()
	}
	return u
}

// WithUser puts user into the request context, bypassing the session.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		FarmID: user.FarmID,
	})
}

// WithChiURLParam adds chi URL parameters to the request, given as
// key, value pairs.
func WithChiURLParam(r *http.Request, kv ...string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// JSONRequest builds a request whose body is v encoded as JSON.
func JSONRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if v != nil {
		if err := json.NewEncoder(&body).Encode(v); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes a recorder body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// AssertStatus fails the test when the recorder's status differs.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}
