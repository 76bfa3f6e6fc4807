// internal/app/features/stock/stock.go
package stock

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	articlestore "github.com/dalemusser/dormhub/internal/app/store/articles"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	stockstore "github.com/dalemusser/dormhub/internal/app/store/stock"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createInput struct {
	ArticleNameID string `json:"article_name_id" validate:"required,objectid" label:"Article"`
	Quantity      int    `json:"quantity" validate:"gte=0" label:"Quantity"`
	MinQuantity   int    `json:"min_quantity" validate:"gte=0" label:"Minimum quantity"`
	Unit          string `json:"unit" validate:"max=20" label:"Unit"`
}

type minimumInput struct {
	MinQuantity int    `json:"min_quantity" validate:"gte=0" label:"Minimum quantity"`
	Unit        string `json:"unit" validate:"max=20" label:"Unit"`
}

type adjustInput struct {
	Delta int `json:"delta" validate:"required" label:"Delta"`
}

// itemView flags lines at or below their alert threshold.
type itemView struct {
	models.StockItem
	Low bool `json:"low"`
}

func views(items []models.StockItem) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, itemView{StockItem: it, Low: it.IsLow()})
	}
	return out
}

func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, stockstore.ErrNotFound):
		uierrors.RenderNotFound(w, "stock item")
	case errors.Is(err, stockstore.ErrDuplicate), errors.Is(err, stockstore.ErrInsufficient):
		uierrors.RenderConflict(w, err.Error())
	case errors.Is(err, stockstore.ErrNegative):
		uierrors.RenderBadRequest(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
	}
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (farmID, itemID primitive.ObjectID, ok bool) {
	if farmID, ok = formutil.IDParam(w, r, "farmID"); !ok {
		return
	}
	itemID, ok = formutil.IDParam(w, r, "itemID")
	return
}

// ServeList handles GET /farms/{farmID}/stock.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.stock.ListByFarm(ctx, farmID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list stock failed", err, "A database error occurred.")
		return
	}
	respond.OK(w, views(items))
}

// ServeLow handles GET /farms/{farmID}/stock/low.
func (h *Handler) ServeLow(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.stock.Low(ctx, &farmID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list low stock failed", err, "A database error occurred.")
		return
	}
	respond.OK(w, views(items))
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	farmID, id, ok := h.ids(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, err := h.stock.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load stock item")
		return
	}
	respond.OK(w, itemView{StockItem: it, Low: it.IsLow()})
}

// HandleCreate adds a catalogue article to the farm's stock.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	var in createInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	articleID, _ := primitive.ObjectIDFromHex(in.ArticleNameID)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	article, err := h.articles.GetByID(ctx, articleID)
	if err != nil {
		if errors.Is(err, articlestore.ErrNotFound) {
			uierrors.RenderBadRequest(w, "article does not exist")
			return
		}
		h.ErrLog.LogServerError(w, r, "load article failed", err, "A database error occurred.")
		return
	}
	it, err := h.stock.Create(ctx, models.StockItem{
		FarmID:      farmID,
		Quantity:    in.Quantity,
		MinQuantity: in.MinQuantity,
		Unit:        in.Unit,
	}, article)
	if err != nil {
		h.renderStoreError(w, r, err, "create stock item")
		return
	}
	h.AuditLog.Created(ctx, r, "stock_item", it.ID, &farmID, it.ArticleName)
	respond.Created(w, itemView{StockItem: it, Low: it.IsLow()})
}

// HandleSetMinimum handles PUT /farms/{farmID}/stock/{itemID}.
func (h *Handler) HandleSetMinimum(w http.ResponseWriter, r *http.Request) {
	farmID, id, ok := h.ids(w, r)
	if !ok {
		return
	}
	var in minimumInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.stock.SetMinimum(ctx, farmID, id, in.MinQuantity, in.Unit); err != nil {
		h.renderStoreError(w, r, err, "update stock item")
		return
	}
	h.AuditLog.Updated(ctx, r, "stock_item", id, &farmID, "min_quantity,unit")

	it, err := h.stock.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "reload stock item")
		return
	}
	respond.OK(w, itemView{StockItem: it, Low: it.IsLow()})
}

// HandleAdjust adds delta to the quantity. A result below zero is refused
// with 409 and leaves the quantity unchanged.
func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	farmID, id, ok := h.ids(w, r)
	if !ok {
		return
	}
	var in adjustInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, err := h.stock.Adjust(ctx, farmID, id, in.Delta)
	if err != nil {
		h.renderStoreError(w, r, err, "adjust stock item")
		return
	}
	h.AuditLog.Admin(ctx, r, auditlog.Action{
		EventType: audit.EventStockAdjusted,
		Entity:    "stock_item",
		TargetID:  &id,
		FarmID:    &farmID,
		Details:   map[string]string{"delta": strconv.Itoa(in.Delta), "quantity": strconv.Itoa(it.Quantity)},
	})
	respond.OK(w, itemView{StockItem: it, Low: it.IsLow()})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	farmID, id, ok := h.ids(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.stock.Delete(ctx, farmID, id); err != nil {
		h.renderStoreError(w, r, err, "delete stock item")
		return
	}
	h.AuditLog.Deleted(ctx, r, "stock_item", id, &farmID, "")
	respond.NoContent(w)
}
