package workers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/features/workers"
	securitycodestore "github.com/dalemusser/dormhub/internal/app/store/securitycodes"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*workers.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return workers.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), testutil.NewFixtures(t, db)
}

func loadRoom(t *testing.T, fx *testutil.Fixtures, id primitive.ObjectID) models.Room {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var r models.Room
	if err := fx.DB().Collection("rooms").FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		t.Fatalf("load room: %v", err)
	}
	return r
}

func loadWorker(t *testing.T, fx *testutil.Fixtures, id primitive.ObjectID) models.Worker {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var w models.Worker
	if err := fx.DB().Collection("workers").FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		t.Fatalf("load worker: %v", err)
	}
	return w
}

func TestHandleCreate(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := fx.CreateFarm(ctx, "Farm A")
	other := fx.CreateFarm(ctx, "Farm B")
	male := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 1)
	female := fx.CreateRoom(ctx, farm.ID, "B1", models.RoomFemale, 2)
	fx.CreateWorker(ctx, farm.ID, "Ali", "AB100", models.GenderMale, nil)
	fx.CreateWorker(ctx, other.ID, "Omar", "AB200", models.GenderMale, nil)

	young := time.Now().UTC().AddDate(-16, 0, 0).Format("2006-01-02")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"ok with room", map[string]any{"full_name": "Hassan Idrissi", "cin": "ab-300", "gender": "Homme", "age": 30, "room_id": male.ID.Hex()}, http.StatusCreated},
		{"room full", map[string]any{"full_name": "Youssef", "cin": "AB301", "gender": "male", "age": 30, "room_id": male.ID.Hex()}, http.StatusConflict},
		{"gender mismatch", map[string]any{"full_name": "Youssef", "cin": "AB302", "gender": "male", "age": 30, "room_id": female.ID.Hex()}, http.StatusConflict},
		{"active on this farm", map[string]any{"full_name": "Ali bis", "cin": "AB100", "gender": "male", "age": 30}, http.StatusConflict},
		{"active on another farm", map[string]any{"full_name": "Omar bis", "cin": "AB200", "gender": "male", "age": 30}, http.StatusConflict},
		{"too young", map[string]any{"full_name": "Karim", "cin": "AB303", "gender": "male", "birth_date": young}, http.StatusUnprocessableEntity},
		{"no age", map[string]any{"full_name": "Karim", "cin": "AB304", "gender": "male"}, http.StatusUnprocessableEntity},
		{"bad cin", map[string]any{"full_name": "Karim", "cin": "123", "gender": "male", "age": 30}, http.StatusUnprocessableEntity},
		{"unknown gender", map[string]any{"full_name": "Karim", "cin": "AB305", "gender": "x", "age": 30}, http.StatusUnprocessableEntity},
		{"foreign room", map[string]any{"full_name": "Karim", "cin": "AB306", "gender": "male", "age": 30, "room_id": primitive.NewObjectID().Hex()}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.JSONRequest(t, "POST", "/", tt.body), testutil.AdminUser(farm.ID))
			req = testutil.WithChiURLParam(req, "farmID", farm.ID.Hex())
			rec := httptest.NewRecorder()
			handler.HandleCreate(rec, req)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}

	got := loadRoom(t, fx, male.ID)
	if len(got.OccupantIDs) != 1 {
		t.Fatalf("occupants = %v, want 1", got.OccupantIDs)
	}
	wk := loadWorker(t, fx, got.OccupantIDs[0])
	if wk.CIN != "AB300" || wk.Gender != models.GenderMale || wk.RoomNumber != "A1" || len(wk.History) != 1 || !wk.History[0].Open() {
		t.Errorf("worker = %+v", wk)
	}
}

func TestHandleUpdate_MovesRoom(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := fx.CreateFarm(ctx, "Farm A")
	a := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 2)
	b := fx.CreateRoom(ctx, farm.ID, "A2", models.RoomMixed, 2)
	wk := fx.CreateWorker(ctx, farm.ID, "Ali", "AB100", models.GenderMale, &a)

	req := testutil.JSONRequest(t, "PUT", "/", map[string]any{
		"full_name": "Ali Benali", "cin": "AB100", "gender": "male", "age": 31, "room_id": b.ID.Hex(),
	})
	req = testutil.WithChiURLParam(testutil.WithUser(req, testutil.AdminUser(farm.ID)), "farmID", farm.ID.Hex(), "workerID", wk.ID.Hex())
	rec := httptest.NewRecorder()
	handler.HandleUpdate(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	if got := loadRoom(t, fx, a.ID); len(got.OccupantIDs) != 0 {
		t.Errorf("old room occupants = %v", got.OccupantIDs)
	}
	if got := loadRoom(t, fx, b.ID); len(got.OccupantIDs) != 1 || got.OccupantIDs[0] != wk.ID {
		t.Errorf("new room occupants = %v", got.OccupantIDs)
	}
	saved := loadWorker(t, fx, wk.ID)
	if saved.FullName != "Ali Benali" || saved.RoomID == nil || *saved.RoomID != b.ID || *saved.History[0].RoomID != b.ID {
		t.Errorf("worker = %+v", saved)
	}
}

func TestHandleDeparture(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := fx.CreateFarm(ctx, "Farm A")
	room := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 2)
	wk := fx.CreateWorker(ctx, farm.ID, "Ali", "AB100", models.GenderMale, &room)

	call := func() *httptest.ResponseRecorder {
		req := testutil.JSONRequest(t, "POST", "/", map[string]string{"reason": "<b>end</b> of season<script>alert(1)</script>"})
		req = testutil.WithChiURLParam(testutil.WithUser(req, testutil.AdminUser(farm.ID)), "farmID", farm.ID.Hex(), "workerID", wk.ID.Hex())
		rec := httptest.NewRecorder()
		handler.HandleDeparture(rec, req)
		return rec
	}
	testutil.AssertStatus(t, call(), http.StatusOK)

	saved := loadWorker(t, fx, wk.ID)
	if saved.Status != models.WorkerDeparted || saved.ExitReason != "end of season" || saved.RoomID != nil {
		t.Errorf("worker = %+v", saved)
	}
	if saved.OpenStayIndex() != -1 {
		t.Errorf("stay still open: %+v", saved.History)
	}
	if got := loadRoom(t, fx, room.ID); len(got.OccupantIDs) != 0 {
		t.Errorf("room occupants = %v", got.OccupantIDs)
	}

	testutil.AssertStatus(t, call(), http.StatusConflict)
}

func TestHandleDelete_RequiresSecurityCode(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := fx.CreateFarm(ctx, "Farm A")
	room := fx.CreateRoom(ctx, farm.ID, "A1", models.RoomMale, 2)
	wk := fx.CreateWorker(ctx, farm.ID, "Ali", "AB100", models.GenderMale, &room)

	codes := securitycodestore.New(fx.DB())
	_, plain, err := codes.Create(ctx, models.SecurityCode{Label: "ops", Purpose: models.PurposeWorkerDelete})
	if err != nil {
		t.Fatalf("create code: %v", err)
	}
	_, wrongPurpose, err := codes.Create(ctx, models.SecurityCode{Label: "other", Purpose: models.PurposeConflictResolve})
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	tests := []struct {
		name string
		code string
		want int
	}{
		{"missing", "", http.StatusUnprocessableEntity},
		{"wrong code", "DEADBEEF", http.StatusForbidden},
		{"wrong purpose", wrongPurpose, http.StatusForbidden},
		{"valid", plain, http.StatusNoContent},
		{"already gone", plain, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.JSONRequest(t, "DELETE", "/", map[string]string{"security_code": tt.code})
			req = testutil.WithChiURLParam(testutil.WithUser(req, testutil.AdminUser(farm.ID)), "farmID", farm.ID.Hex(), "workerID", wk.ID.Hex())
			rec := httptest.NewRecorder()
			handler.HandleDelete(rec, req)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
	if got := loadRoom(t, fx, room.ID); len(got.OccupantIDs) != 0 {
		t.Errorf("room occupants = %v", got.OccupantIDs)
	}
}

func TestServeList_Search(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := fx.CreateFarm(ctx, "Farm A")
	fx.CreateWorker(ctx, farm.ID, "Ali", "AB100", models.GenderMale, nil)
	fx.CreateWorker(ctx, farm.ID, "Amina", "AB101", models.GenderFemale, nil)
	fx.CreateWorker(ctx, farm.ID, "Brahim", "AB102", models.GenderMale, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/?q=a", 2},
		{"/?q=ab102", 1},
		{"/?gender=femme", 1},
		{"/?limit=2", 2},
		{"/", 3},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req := testutil.WithUser(httptest.NewRequest("GET", tt.target, nil), testutil.AdminUser(farm.ID))
			req = testutil.WithChiURLParam(req, "farmID", farm.ID.Hex())
			rec := httptest.NewRecorder()
			handler.ServeList(rec, req)
			testutil.AssertStatus(t, rec, http.StatusOK)
			var got struct {
				Workers []models.Worker `json:"workers"`
			}
			testutil.DecodeJSON(t, rec, &got)
			if len(got.Workers) != tt.want {
				t.Errorf("got %d workers, want %d", len(got.Workers), tt.want)
			}
		})
	}
}
