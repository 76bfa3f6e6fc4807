package stock_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/features/stock"
	"github.com/dalemusser/dormhub/internal/app/system/indexes"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*stock.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	return stock.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), testutil.NewFixtures(t, db)
}

type itemResp struct {
	models.StockItem
	Low bool `json:"low"`
}

func TestHandleCreate(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	a := fx.CreateArticle(ctx, "Couverture", "piece")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"ok", map[string]any{"article_name_id": a.ID.Hex(), "quantity": 3, "min_quantity": 5}, http.StatusCreated},
		{"already stocked", map[string]any{"article_name_id": a.ID.Hex(), "quantity": 1}, http.StatusConflict},
		{"unknown article", map[string]any{"article_name_id": primitive.NewObjectID().Hex()}, http.StatusBadRequest},
		{"negative quantity", map[string]any{"article_name_id": a.ID.Hex(), "quantity": -1}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.JSONRequest(t, "POST", "/", tt.body), testutil.AdminUser(farm.ID))
			req = testutil.WithChiURLParam(req, "farmID", farm.ID.Hex())
			rec := httptest.NewRecorder()
			handler.HandleCreate(rec, req)
			testutil.AssertStatus(t, rec, tt.want)
			if tt.want == http.StatusCreated {
				var got itemResp
				testutil.DecodeJSON(t, rec, &got)
				if got.ArticleName != "Couverture" || got.Unit != "piece" || !got.Low {
					t.Errorf("item = %+v", got)
				}
			}
		})
	}
}

func TestHandleAdjust_RefusesNegative(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	item := fx.CreateStock(ctx, farm.ID, fx.CreateArticle(ctx, "Bottes", "pair"), 5, 1)

	tests := []struct {
		name    string
		delta   int
		want    int
		wantQty int
	}{
		{"add", 3, http.StatusOK, 8},
		{"take", -6, http.StatusOK, 2},
		{"overdraw", -3, http.StatusConflict, 2},
		{"zero", 0, http.StatusUnprocessableEntity, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.JSONRequest(t, "POST", "/", map[string]int{"delta": tt.delta}), testutil.AdminUser(farm.ID))
			req = testutil.WithChiURLParam(req, "farmID", farm.ID.Hex(), "itemID", item.ID.Hex())
			rec := httptest.NewRecorder()
			handler.HandleAdjust(rec, req)
			testutil.AssertStatus(t, rec, tt.want)

			rec = httptest.NewRecorder()
			handler.ServeGet(rec, req)
			var got itemResp
			testutil.DecodeJSON(t, rec, &got)
			if got.Quantity != tt.wantQty {
				t.Errorf("quantity = %d, want %d", got.Quantity, tt.wantQty)
			}
		})
	}
}

func TestServeLow(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	farm := fx.CreateFarm(ctx, "Farm A")
	other := fx.CreateFarm(ctx, "Farm B")
	fx.CreateStock(ctx, farm.ID, fx.CreateArticle(ctx, "Bottes", "pair"), 2, 2)
	fx.CreateStock(ctx, farm.ID, fx.CreateArticle(ctx, "Matelas", "piece"), 9, 2)
	fx.CreateStock(ctx, other.ID, fx.CreateArticle(ctx, "Seau", "piece"), 0, 1)

	req := testutil.WithUser(httptest.NewRequest("GET", "/low", nil), testutil.AdminUser(farm.ID))
	req = testutil.WithChiURLParam(req, "farmID", farm.ID.Hex())
	rec := httptest.NewRecorder()
	handler.ServeLow(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var got []itemResp
	testutil.DecodeJSON(t, rec, &got)
	if len(got) != 1 || got[0].ArticleName != "Bottes" || !got[0].Low {
		t.Errorf("low = %+v", got)
	}
}
