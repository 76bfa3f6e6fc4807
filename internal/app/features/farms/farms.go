// internal/app/features/farms/farms.go
package farms

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
)

type farmInput struct {
	Name     string `json:"name" validate:"required,max=200" label:"Farm name"`
	Code     string `json:"code" validate:"max=20" label:"Code"`
	Location string `json:"location" validate:"max=200" label:"Location"`
}

type farmUpdateInput struct {
	Name     string `json:"name" validate:"max=200" label:"Farm name"`
	Code     string `json:"code" validate:"max=20" label:"Code"`
	Location string `json:"location" validate:"max=200" label:"Location"`
	Status   string `json:"status" validate:"omitempty,oneof=active disabled" label:"Status"`
}

// ServeList handles GET /farms[?status=active].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	scope, ok := authz.FarmScope(r)
	if !ok {
		uierrors.RenderForbidden(w, "")
		return
	}
	filter := bson.M{}
	if scope != nil {
		filter["_id"] = *scope
	}
	if st := strings.TrimSpace(query.Get(r, "status")); st != "" {
		filter["status"] = st
	}
	farms, err := h.farms.Find(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list farms failed", err, "A database error occurred.")
		return
	}
	if farms == nil {
		farms = []models.Farm{}
	}
	respond.OK(w, farms)
}

// ServeGet handles GET /farms/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	if !authz.CanAccessFarm(r, id) {
		uierrors.RenderForbidden(w, "you do not manage this farm")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	f, err := h.farms.GetByID(ctx, id)
	if errors.Is(err, farmstore.ErrNotFound) {
		uierrors.RenderNotFound(w, "farm")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load farm failed", err, "A database error occurred.")
		return
	}
	respond.OK(w, f)
}

// HandleCreate handles POST /farms.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in farmInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	f, err := h.farms.Create(ctx, models.Farm{
		Name:     in.Name,
		Code:     strings.ToUpper(strings.TrimSpace(in.Code)),
		Location: strings.TrimSpace(in.Location),
	})
	if errors.Is(err, farmstore.ErrDuplicateFarm) {
		uierrors.RenderConflict(w, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create farm failed", err, "Database error while creating farm.")
		return
	}
	h.AuditLog.Created(ctx, r, "farm", f.ID, &f.ID, f.Name)
	respond.Created(w, f)
}

// HandleUpdate handles PUT /farms/{id}. Omitted fields keep their value.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	var in farmUpdateInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.farms.Update(ctx, id, models.Farm{
		Name:     in.Name,
		Code:     strings.ToUpper(strings.TrimSpace(in.Code)),
		Location: strings.TrimSpace(in.Location),
		Status:   in.Status,
	})
	switch {
	case errors.Is(err, farmstore.ErrNotFound):
		uierrors.RenderNotFound(w, "farm")
		return
	case errors.Is(err, farmstore.ErrDuplicateFarm):
		uierrors.RenderConflict(w, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update farm failed", err, "Database error while updating farm.")
		return
	}
	h.AuditLog.Updated(ctx, r, "farm", id, &id, "name,code,location,status")

	f, err := h.farms.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reload farm failed", err, "A database error occurred.")
		return
	}
	respond.OK(w, f)
}

// HandleDelete handles DELETE /farms/{id}. Farms still referenced by
// rooms, workers, users or stock are refused with 409.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.farms.Delete(ctx, id)
	switch {
	case errors.Is(err, farmstore.ErrNotFound):
		uierrors.RenderNotFound(w, "farm")
		return
	case errors.Is(err, farmstore.ErrInUse):
		uierrors.RenderConflict(w, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "delete farm failed", err, "Database error while deleting farm.")
		return
	}
	h.AuditLog.Deleted(ctx, r, "farm", id, &id, "")
	respond.NoContent(w)
}
