// internal/app/features/transfers/transfers.go
package transfers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	transferstore "github.com/dalemusser/dormhub/internal/app/store/transfers"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createInput struct {
	FromFarmID string   `json:"from_farm_id" validate:"omitempty,objectid" label:"Origin farm"`
	ToFarmID   string   `json:"to_farm_id" validate:"required,objectid" label:"Destination farm"`
	WorkerIDs  []string `json:"worker_ids" validate:"required,min=1,max=500,dive,objectid" label:"Workers"`
	Note       string   `json:"note" validate:"max=500" label:"Note"`
}

type assignInput struct {
	Assignments []struct {
		WorkerID string `json:"worker_id" validate:"required,objectid" label:"Worker"`
		RoomID   string `json:"room_id" validate:"required,objectid" label:"Room"`
	} `json:"assignments" validate:"required,min=1,dive" label:"Assignments"`
}

type reasonInput struct {
	Reason string `json:"reason" validate:"max=500" label:"Reason"`
}

type rejectInput struct {
	Reason string `json:"reason" validate:"required,max=500" label:"Reason"`
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var re *RuleError
	switch {
	case errors.As(err, &re):
		uierrors.RenderConflict(w, re.Msg, re.Details...)
	case errors.Is(err, transferstore.ErrNotFound):
		uierrors.RenderNotFound(w, "transfer")
	case errors.Is(err, farmstore.ErrNotFound):
		uierrors.RenderBadRequest(w, "destination farm does not exist")
	case errors.Is(err, transferstore.ErrInvalidTransition), errors.Is(err, transferstore.ErrStale):
		uierrors.RenderConflict(w, err.Error())
	case errors.Is(err, workerstore.ErrStale), errors.Is(err, workerstore.ErrNotFound), errors.Is(err, roomstore.ErrNotFound):
		uierrors.RenderConflict(w, "transfer is out of date", err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
	}
}

// load fetches the transfer named in the URL and checks that the user
// may act for the given side (nil = either side).
func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request, side func(models.Transfer) primitive.ObjectID) (models.Transfer, bool) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return models.Transfer{}, false
	}
	t, err := h.Svc.Get(ctx, id)
	if err != nil {
		h.renderError(w, r, err, "load transfer")
		return models.Transfer{}, false
	}
	if side == nil {
		if !authz.CanAccessFarm(r, t.FromFarmID) && !authz.CanAccessFarm(r, t.ToFarmID) {
			uierrors.RenderNotFound(w, "transfer")
			return models.Transfer{}, false
		}
		return t, true
	}
	if !authz.CanAccessFarm(r, side(t)) {
		if authz.CanAccessFarm(r, t.FromFarmID) || authz.CanAccessFarm(r, t.ToFarmID) {
			uierrors.RenderForbidden(w, "only the other farm can do this")
		} else {
			uierrors.RenderNotFound(w, "transfer")
		}
		return models.Transfer{}, false
	}
	return t, true
}

func origin(t models.Transfer) primitive.ObjectID      { return t.FromFarmID }
func destination(t models.Transfer) primitive.ObjectID { return t.ToFarmID }

func (h *Handler) record(ctx context.Context, r *http.Request, event string, t models.Transfer, details map[string]string) {
	id := t.ID
	h.AuditLog.Admin(ctx, r, auditlog.Action{
		EventType: event,
		Entity:    "transfer",
		TargetID:  &id,
		FarmID:    &t.FromFarmID,
		Details:   details,
	})
}

// ServeList handles GET /transfers[?direction=incoming|outgoing&status=&farm_id=].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	scope, ok := authz.FarmScope(r)
	if !ok {
		uierrors.RenderForbidden(w, "")
		return
	}
	if scope == nil {
		fid, err := formutil.OptionalID(query.Get(r, "farm_id"))
		if err != nil {
			uierrors.RenderBadRequest(w, "invalid farm id")
			return
		}
		scope = fid
	}
	dir := query.Get(r, "direction")
	if dir != "" && dir != transferstore.Incoming && dir != transferstore.Outgoing {
		uierrors.RenderBadRequest(w, "direction must be incoming or outgoing")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Svc.List(ctx, transferstore.Filter{
		FarmID:    scope,
		Direction: dir,
		Status:    query.Get(r, "status"),
		Limit:     200,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list transfers failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.Transfer{}
	}
	respond.OK(w, list)
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	t, ok := h.load(ctx, w, r, nil)
	if !ok {
		return
	}
	respond.OK(w, t)
}

// HandleCreate handles POST /transfers. Admins transfer from their own
// farm; superadmins name the origin.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	from, err := formutil.OptionalID(in.FromFarmID)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid origin farm id")
		return
	}
	if own, isAdmin := authz.UserFarmID(r); isAdmin {
		if from != nil && *from != own {
			uierrors.RenderForbidden(w, "you can only transfer workers from your own farm")
			return
		}
		from = &own
	}
	if from == nil {
		respond.Error(w, http.StatusUnprocessableEntity, "Origin farm is required.")
		return
	}
	to, _ := primitive.ObjectIDFromHex(in.ToFarmID)
	workerIDs, _ := formutil.IDs(in.WorkerIDs)
	_, _, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.Svc.Create(ctx, actor, *from, to, workerIDs, in.Note)
	if err != nil {
		h.renderError(w, r, err, "create transfer")
		return
	}
	h.record(ctx, r, audit.EventTransferCreated, t, map[string]string{
		"to_farm_id": t.ToFarmID.Hex(),
		"workers":    strconv.Itoa(len(t.Items)),
	})
	respond.Created(w, t)
}

// HandleAssign handles POST /transfers/{id}/assign (destination side).
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var in assignInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(ctx, w, r, destination)
	if !ok {
		return
	}
	as := make([]Assignment, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		wid, _ := primitive.ObjectIDFromHex(a.WorkerID)
		rid, _ := primitive.ObjectIDFromHex(a.RoomID)
		as = append(as, Assignment{WorkerID: wid, RoomID: rid})
	}
	t, err := h.Svc.Assign(ctx, t.ID, as)
	if err != nil {
		h.renderError(w, r, err, "assign rooms")
		return
	}
	h.record(ctx, r, audit.EventTransferAssigned, t, nil)
	respond.OK(w, t)
}

// HandleCommit handles POST /transfers/{id}/commit (destination side).
func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	t, ok := h.load(ctx, w, r, destination)
	if !ok {
		return
	}
	_, _, actor, _ := authz.UserCtx(r)
	t, err := h.Svc.Commit(ctx, actor, t.ID)
	if err != nil {
		h.renderError(w, r, err, "commit transfer")
		return
	}
	h.record(ctx, r, audit.EventTransferCompleted, t, map[string]string{"workers": strconv.Itoa(len(t.Items))})
	respond.OK(w, t)
}

// HandleReject handles POST /transfers/{id}/reject (destination side).
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var in rejectInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	if htmlsanitize.PlainText(in.Reason) == "" {
		respond.Error(w, http.StatusUnprocessableEntity, "Reason is required.")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(ctx, w, r, destination)
	if !ok {
		return
	}
	_, _, actor, _ := authz.UserCtx(r)
	t, err := h.Svc.Reject(ctx, actor, t.ID, in.Reason)
	if err != nil {
		h.renderError(w, r, err, "reject transfer")
		return
	}
	h.record(ctx, r, audit.EventTransferRejected, t, map[string]string{"reason": t.Reason})
	respond.OK(w, t)
}

// HandleCancel handles POST /transfers/{id}/cancel (origin side).
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var in reasonInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(ctx, w, r, origin)
	if !ok {
		return
	}
	_, _, actor, _ := authz.UserCtx(r)
	t, err := h.Svc.Cancel(ctx, actor, t.ID, in.Reason)
	if err != nil {
		h.renderError(w, r, err, "cancel transfer")
		return
	}
	h.record(ctx, r, audit.EventTransferCancelled, t, map[string]string{"reason": t.Reason})
	respond.OK(w, t)
}
