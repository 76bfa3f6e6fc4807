// internal/app/features/users/users.go
package users

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	userstore "github.com/dalemusser/dormhub/internal/app/store/users"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/paging"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createUserInput struct {
	FullName string `json:"full_name" validate:"required,max=200" label:"Full name"`
	Email    string `json:"email" validate:"required,email,max=254" label:"Email"`
	Role     string `json:"role" validate:"required,role" label:"Role"`
	FarmID   string `json:"farm_id" validate:"required_if=Role admin,omitempty,objectid" label:"Farm"`
	Password string `json:"password" validate:"required,min=8,max=128" label:"Password"`
}

type updateUserInput struct {
	FullName string `json:"full_name" validate:"required,max=200" label:"Full name"`
	Email    string `json:"email" validate:"required,email,max=254" label:"Email"`
	Role     string `json:"role" validate:"required,role" label:"Role"`
	FarmID   string `json:"farm_id" validate:"required_if=Role admin,omitempty,objectid" label:"Farm"`
	Status   string `json:"status" validate:"required,oneof=active disabled" label:"Status"`
}

type passwordInput struct {
	Password string `json:"password" validate:"required,min=8,max=128" label:"Password"`
}

type listResponse struct {
	Users []models.User `json:"users"`
	Page  paging.Page   `json:"page"`
}

// renderStoreError maps userstore errors to responses.
func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		uierrors.RenderNotFound(w, "user")
	case errors.Is(err, userstore.ErrDuplicateEmail):
		uierrors.RenderConflict(w, err.Error())
	case errors.Is(err, userstore.ErrBadRole),
		errors.Is(err, userstore.ErrBadStatus),
		errors.Is(err, userstore.ErrFarmNeeded),
		errors.Is(err, userstore.ErrFarmNotAllowed):
		uierrors.RenderBadRequest(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
	}
}

// farmFor validates the farm reference of a role. Superadmins never
// carry a farm; admins must reference an existing farm.
func (h *Handler) farmFor(ctx context.Context, w http.ResponseWriter, r *http.Request, role, farmHex string) (*primitive.ObjectID, bool) {
	if role == models.RoleSuperAdmin {
		if farmHex != "" {
			uierrors.RenderBadRequest(w, userstore.ErrFarmNotAllowed.Error())
			return nil, false
		}
		return nil, true
	}
	farmID, err := formutil.OptionalID(farmHex)
	if err != nil || farmID == nil {
		uierrors.RenderBadRequest(w, userstore.ErrFarmNeeded.Error())
		return nil, false
	}
	if _, err := h.farms.GetByID(ctx, *farmID); err != nil {
		if errors.Is(err, farmstore.ErrNotFound) {
			uierrors.RenderBadRequest(w, "farm does not exist")
		} else {
			h.ErrLog.LogServerError(w, r, "load farm failed", err, "A database error occurred.")
		}
		return nil, false
	}
	return farmID, true
}

// ServeList handles GET /users[?role=&farm_id=&status=&q=&after=&before=&limit=].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	f := userstore.ListFilter{
		Role:   query.Get(r, "role"),
		Status: query.Get(r, "status"),
		Search: query.Get(r, "q"),
	}
	farmID, err := formutil.OptionalID(query.Get(r, "farm_id"))
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid farm id")
		return
	}
	f.FarmID = farmID

	rows, page, err := h.users.List(ctx, f, paging.FromRequest(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users failed", err, "A database error occurred.")
		return
	}
	if rows == nil {
		rows = []models.User{}
	}
	respond.OK(w, listResponse{Users: rows, Page: page})
}

// ServeGet handles GET /users/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load user")
		return
	}
	respond.OK(w, u)
}

// HandleCreate handles POST /users.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createUserInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	farmID, ok := h.farmFor(ctx, w, r, in.Role, in.FarmID)
	if !ok {
		return
	}
	u, err := h.users.Create(ctx, models.User{
		FullName: in.FullName,
		Email:    in.Email,
		Role:     in.Role,
		FarmID:   farmID,
	}, in.Password)
	if err != nil {
		h.renderStoreError(w, r, err, "create user")
		return
	}
	h.AuditLog.Created(ctx, r, "user", u.ID, u.FarmID, u.Email)
	respond.Created(w, u)
}

// HandleUpdate handles PUT /users/{id}. Every profile field is replaced.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	var in updateUserInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	_, _, me, _ := authz.UserCtx(r)
	if id == me && (in.Role != models.RoleSuperAdmin || in.Status != models.StatusActive) {
		uierrors.RenderForbidden(w, "you cannot demote or disable your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	farmID, ok := h.farmFor(ctx, w, r, in.Role, in.FarmID)
	if !ok {
		return
	}
	err := h.users.Update(ctx, id, userstore.Update{
		FullName: in.FullName,
		Email:    in.Email,
		Role:     in.Role,
		FarmID:   farmID,
		Status:   in.Status,
	})
	if err != nil {
		h.renderStoreError(w, r, err, "update user")
		return
	}
	h.AuditLog.Updated(ctx, r, "user", id, farmID, "full_name,email,role,farm_id,status")

	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		h.renderStoreError(w, r, err, "reload user")
		return
	}
	respond.OK(w, u)
}

// HandleSetPassword handles POST /users/{id}/password.
func (h *Handler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	var in passwordInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.users.SetPassword(ctx, id, in.Password); err != nil {
		h.renderStoreError(w, r, err, "set password")
		return
	}
	h.AuditLog.Updated(ctx, r, "user", id, nil, "password")
	respond.NoContent(w)
}

// HandleDisable handles POST /users/{id}/disable.
func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusDisabled)
}

// HandleEnable handles POST /users/{id}/enable.
func (h *Handler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusActive)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	if _, _, me, _ := authz.UserCtx(r); id == me && status != models.StatusActive {
		uierrors.RenderForbidden(w, "you cannot disable your own account")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.users.SetStatus(ctx, id, status); err != nil {
		h.renderStoreError(w, r, err, "set user status")
		return
	}
	h.AuditLog.Updated(ctx, r, "user", id, nil, "status="+status)
	respond.NoContent(w)
}

// HandleDelete handles DELETE /users/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	if _, _, me, _ := authz.UserCtx(r); id == me {
		uierrors.RenderForbidden(w, "you cannot delete your own account")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.users.Delete(ctx, id)
	if err != nil {
		h.renderStoreError(w, r, err, "delete user")
		return
	}
	if n == 0 {
		uierrors.RenderNotFound(w, "user")
		return
	}
	h.AuditLog.Deleted(ctx, r, "user", id, nil, "")
	respond.NoContent(w)
}
