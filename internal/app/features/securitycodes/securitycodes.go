// internal/app/features/securitycodes/securitycodes.go
package securitycodes

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	securitycodestore "github.com/dalemusser/dormhub/internal/app/store/securitycodes"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
)

type codeInput struct {
	Label        string `json:"label" validate:"required,max=80" label:"Label"`
	Purpose      string `json:"purpose" validate:"required,purpose" label:"Purpose"`
	FarmID       string `json:"farm_id" validate:"omitempty,objectid" label:"Farm"`
	ExpiresHours int    `json:"expires_in_hours" validate:"gte=0,lte=8760" label:"Expiry"`
}

// createdCode is the only response that ever carries the plain code.
type createdCode struct {
	models.SecurityCode
	Code string `json:"code"`
}

func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, securitycodestore.ErrNotFound):
		uierrors.RenderNotFound(w, "security code")
	case errors.Is(err, securitycodestore.ErrBadPurpose):
		uierrors.RenderBadRequest(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
	}
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.codes.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list security codes failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.SecurityCode{}
	}
	respond.OK(w, list)
}

// HandleCreate generates a code and returns it in plain text once.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in codeInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	farmID, err := formutil.OptionalID(in.FarmID)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid farm id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if farmID != nil {
		if _, err := h.farms.GetByID(ctx, *farmID); err != nil {
			if errors.Is(err, farmstore.ErrNotFound) {
				uierrors.RenderBadRequest(w, "farm does not exist")
				return
			}
			h.ErrLog.LogServerError(w, r, "load farm failed", err, "A database error occurred.")
			return
		}
	}
	_, _, userID, _ := authz.UserCtx(r)
	c := models.SecurityCode{
		Label:     in.Label,
		Purpose:   in.Purpose,
		FarmID:    farmID,
		CreatedBy: userID,
	}
	if in.ExpiresHours > 0 {
		exp := time.Now().UTC().Add(time.Duration(in.ExpiresHours) * time.Hour)
		c.ExpiresAt = &exp
	}

	c, plain, err := h.codes.Create(ctx, c)
	if err != nil {
		h.renderStoreError(w, r, err, "create security code")
		return
	}
	h.AuditLog.Created(ctx, r, "security_code", c.ID, farmID, c.Label)
	respond.Created(w, createdCode{SecurityCode: c, Code: plain})
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.codes.Deactivate(ctx, id); err != nil {
		h.renderStoreError(w, r, err, "deactivate security code")
		return
	}
	h.AuditLog.Updated(ctx, r, "security_code", id, nil, "active")
	respond.NoContent(w)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.codes.Delete(ctx, id); err != nil {
		h.renderStoreError(w, r, err, "delete security code")
		return
	}
	h.AuditLog.Deleted(ctx, r, "security_code", id, nil, "")
	respond.NoContent(w)
}
