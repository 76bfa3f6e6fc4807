// internal/app/features/supervisors/supervisors.go
package supervisors

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	supervisorstore "github.com/dalemusser/dormhub/internal/app/store/supervisors"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/app/system/txn"
	"github.com/dalemusser/dormhub/internal/domain/models"
)

type supervisorInput struct {
	FullName string `json:"full_name" validate:"required,max=120" label:"Full name"`
	Phone    string `json:"phone" validate:"max=30" label:"Phone"`
	CIN      string `json:"cin" validate:"omitempty,cin" label:"CIN"`
	Status   string `json:"status" validate:"omitempty,oneof=active disabled" label:"Status"`
}

func (in supervisorInput) model() models.Supervisor {
	return models.Supervisor{FullName: in.FullName, Phone: in.Phone, CIN: in.CIN, Status: in.Status}
}

func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if errors.Is(err, supervisorstore.ErrNotFound) {
		uierrors.RenderNotFound(w, "supervisor")
		return
	}
	h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
}

// ServeList handles GET /farms/{farmID}/supervisors.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sups, err := h.supervisors.ListByFarm(ctx, farmID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list supervisors failed", err, "A database error occurred.")
		return
	}
	if sups == nil {
		sups = []models.Supervisor{}
	}
	respond.OK(w, sups)
}

// ServeGet handles GET /farms/{farmID}/supervisors/{supervisorID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "supervisorID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sup, err := h.supervisors.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load supervisor")
		return
	}
	respond.OK(w, sup)
}

// HandleCreate handles POST /farms/{farmID}/supervisors.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	var in supervisorInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sup := in.model()
	sup.FarmID = farmID
	sup, err := h.supervisors.Create(ctx, sup)
	if err != nil {
		h.renderStoreError(w, r, err, "create supervisor")
		return
	}
	h.AuditLog.Created(ctx, r, "supervisor", sup.ID, &farmID, sup.FullName)
	respond.Created(w, sup)
}

// HandleUpdate handles PUT /farms/{farmID}/supervisors/{supervisorID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "supervisorID")
	if !ok {
		return
	}
	var in supervisorInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.supervisors.Update(ctx, farmID, id, in.model()); err != nil {
		h.renderStoreError(w, r, err, "update supervisor")
		return
	}
	h.AuditLog.Updated(ctx, r, "supervisor", id, &farmID, "full_name,phone,cin,status")

	sup, err := h.supervisors.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "reload supervisor")
		return
	}
	respond.OK(w, sup)
}

// HandleDelete handles DELETE /farms/{farmID}/supervisors/{supervisorID}.
// Rooms that referenced the supervisor are left without one.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "supervisorID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.supervisors.Delete(ctx, farmID, id); err != nil {
			return err
		}
		return h.rooms.ClearSupervisor(ctx, id)
	})
	if err != nil {
		h.renderStoreError(w, r, err, "delete supervisor")
		return
	}
	h.AuditLog.Deleted(ctx, r, "supervisor", id, &farmID, "")
	respond.NoContent(w)
}
