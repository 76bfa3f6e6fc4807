package articles_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/dormhub/internal/app/features/articles"
	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/system/indexes"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*articles.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	return articles.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), testutil.NewFixtures(t, db)
}

func TestHandleCreate_Duplicate(t *testing.T) {
	handler, _ := newTestHandler(t)
	super := testutil.SuperAdminUser()

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"ok", map[string]string{"name": "Couverture", "unit": "piece"}, http.StatusCreated},
		{"same name folded", map[string]string{"name": "COUVERTURE"}, http.StatusConflict},
		{"missing name", map[string]string{"unit": "piece"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleCreate(rec, testutil.WithUser(testutil.JSONRequest(t, "POST", "/", tt.body), super))
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}

func TestHandleUpdate_RenamesStock(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	a := fx.CreateArticle(ctx, "Matelas", "piece")
	item := fx.CreateStock(ctx, farm.ID, a, 10, 2)

	req := testutil.JSONRequest(t, "PUT", "/", map[string]string{"name": "Matelas mousse", "unit": "piece"})
	req = testutil.WithChiURLParam(testutil.WithUser(req, testutil.SuperAdminUser()), "id", a.ID.Hex())
	rec := httptest.NewRecorder()
	handler.HandleUpdate(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var got models.StockItem
	if err := fx.DB().Collection("stock_items").FindOne(ctx, bson.M{"_id": item.ID}).Decode(&got); err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if got.ArticleName != "Matelas mousse" {
		t.Errorf("stock article name = %q", got.ArticleName)
	}
}

func TestHandleDelete_InUse(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	used := fx.CreateArticle(ctx, "Matelas", "piece")
	free := fx.CreateArticle(ctx, "Bottes", "pair")
	fx.CreateStock(ctx, farm.ID, used, 10, 2)

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"referenced", used.ID.Hex(), http.StatusConflict},
		{"unreferenced", free.ID.Hex(), http.StatusNoContent},
		{"missing", free.ID.Hex(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(httptest.NewRequest("DELETE", "/", nil), testutil.SuperAdminUser())
			req = testutil.WithChiURLParam(req, "id", tt.id)
			rec := httptest.NewRecorder()
			handler.HandleDelete(rec, req)
			testutil.AssertStatus(t, rec, tt.want)
		})
	}
}
