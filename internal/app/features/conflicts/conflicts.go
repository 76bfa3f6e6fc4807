// internal/app/features/conflicts/conflicts.go
package conflicts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	farmstore "github.com/dalemusser/dormhub/internal/app/store/farms"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	securitycodestore "github.com/dalemusser/dormhub/internal/app/store/securitycodes"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/reconcile"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/app/system/txn"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Report lists active-worker conflicts and workers whose stay history
// overlaps itself.
type Report struct {
	Conflicts []reconcile.Conflict       `json:"conflicts"`
	Overlaps  []reconcile.WorkerOverlaps `json:"overlaps"`
	Farms     map[string]string          `json:"farms"` // farm id -> name
}

// LoadReport scans the workers collection. It is shared by the HTTP
// report and the ops CLI.
func LoadReport(ctx context.Context, db *mongo.Database) (Report, error) {
	workers := workerstore.New(db)
	active, err := workers.Active(ctx, nil)
	if err != nil {
		return Report{}, fmt.Errorf("load active workers: %w", err)
	}
	// Only workers with at least two stays can overlap.
	multi, err := workers.Find(ctx, bson.M{"history.1": bson.M{"$exists": true}})
	if err != nil {
		return Report{}, fmt.Errorf("load worker histories: %w", err)
	}

	rep := Report{
		Conflicts: reconcile.DetectConflicts(active),
		Overlaps:  reconcile.ScanOverlaps(multi),
	}
	if rep.Conflicts == nil {
		rep.Conflicts = []reconcile.Conflict{}
	}
	if rep.Overlaps == nil {
		rep.Overlaps = []reconcile.WorkerOverlaps{}
	}

	var ids []primitive.ObjectID
	for _, c := range rep.Conflicts {
		ids = append(ids, c.FarmIDs...)
	}
	for _, o := range rep.Overlaps {
		ids = append(ids, o.FarmID)
	}
	names, err := farmstore.New(db).Names(ctx, ids)
	if err != nil {
		return Report{}, fmt.Errorf("load farm names: %w", err)
	}
	rep.Farms = make(map[string]string, len(names))
	for id, n := range names {
		rep.Farms[id.Hex()] = n
	}
	return rep, nil
}

// ServeReport handles GET /conflicts.
func (h *Handler) ServeReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rep, err := LoadReport(ctx, h.DB)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "build conflict report failed", err, "A database error occurred.")
		return
	}
	respond.OK(w, rep)
}

type resolveInput struct {
	CIN          string `json:"cin" validate:"required,max=20" label:"CIN"`
	Policy       string `json:"policy" validate:"required,oneof=keep_latest keep_farm keep_record" label:"Policy"`
	FarmID       string `json:"farm_id" validate:"required_if=Policy keep_farm,omitempty,objectid" label:"Farm"`
	KeepID       string `json:"keep_id" validate:"required_if=Policy keep_record,omitempty,objectid" label:"Record to keep"`
	SecurityCode string `json:"security_code" validate:"required" label:"Security code"`
}

type resolveResult struct {
	CIN     string               `json:"cin"`
	Keeper  models.Worker        `json:"keeper"`
	Retired []primitive.ObjectID `json:"retired"`
}

// HandleResolve handles POST /conflicts/resolve. The losing records are
// retired in one transaction and the admins of every farm involved are told.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var in resolveInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	cin := normalize.CIN(in.CIN)
	policy := reconcile.Policy{Kind: in.Policy}
	if id, err := formutil.OptionalID(in.FarmID); err == nil && id != nil {
		policy.FarmID = *id
	}
	if id, err := formutil.OptionalID(in.KeepID); err == nil && id != nil {
		policy.KeepID = *id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	code, err := h.codes.Verify(ctx, in.SecurityCode, models.PurposeConflictResolve, nil)
	if err != nil {
		if errors.Is(err, securitycodestore.ErrInvalidCode) {
			h.AuditLog.Admin(ctx, r, auditlog.Action{
				EventType: audit.EventSecurityCodeDenied,
				Entity:    "conflict",
				Details:   map[string]string{"cin": cin},
				Failure:   "invalid security code",
			})
			uierrors.RenderForbidden(w, err.Error())
			return
		}
		h.ErrLog.LogServerError(w, r, "verify security code failed", err, "A database error occurred.")
		return
	}

	found, err := h.workers.ActiveByCINs(ctx, []string{cin})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load workers failed", err, "A database error occurred.")
		return
	}
	conflicts := reconcile.DetectConflicts(found)
	if len(conflicts) == 0 {
		uierrors.RenderNotFound(w, "conflict")
		return
	}
	c := conflicts[0]
	res, err := reconcile.Resolve(c, policy)
	if err != nil {
		uierrors.RenderConflict(w, err.Error())
		return
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		for _, loser := range res.Losers {
			retired := reconcile.Retire(loser, res.Keeper, now)
			// Replace matches on the updated_at that was read.
			retired.UpdatedAt = loser.UpdatedAt
			if _, err := h.workers.Replace(ctx, retired); err != nil {
				return err
			}
			if err := h.rooms.RemoveFromAll(ctx, loser.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, workerstore.ErrStale) || errors.Is(err, workerstore.ErrNotFound) {
			uierrors.RenderConflict(w, "workers changed while resolving, reload the report")
			return
		}
		h.ErrLog.LogServerError(w, r, "resolve conflict failed", err, "A database error occurred.")
		return
	}
	h.Metrics.ConflictsResolved(len(res.Losers))

	retired := make([]primitive.ObjectID, len(res.Losers))
	for i, l := range res.Losers {
		retired[i] = l.ID
	}
	h.AuditLog.Admin(ctx, r, auditlog.Action{
		EventType: audit.EventConflictResolved,
		Entity:    "worker",
		TargetID:  &res.Keeper.ID,
		FarmID:    &res.Keeper.FarmID,
		Details: map[string]string{
			"cin":           cin,
			"policy":        in.Policy,
			"retired":       joinIDs(retired),
			"security_code": code.Label,
		},
	})
	h.announce(ctx, r, c, res)

	respond.OK(w, resolveResult{CIN: cin, Keeper: res.Keeper, Retired: retired})
}

// announce tells the admins of every farm in the conflict which record
// was kept. Failures are only logged.
func (h *Handler) announce(ctx context.Context, r *http.Request, c reconcile.Conflict, res reconcile.Resolution) {
	_, _, actor, _ := authz.UserCtx(r)
	names, err := h.farms.Names(ctx, c.FarmIDs)
	if err != nil {
		h.Log.Warn("load farm names failed", zap.Error(err))
		names = map[primitive.ObjectID]string{}
	}
	keptOn := names[res.Keeper.FarmID]
	if keptOn == "" {
		keptOn = "another farm"
	}
	for _, farmID := range c.FarmIDs {
		fid := farmID
		b, err := h.notify.SendToFarm(ctx, fid, notificationstore.Message{
			Type:    models.NotifyConflictResolved,
			Title:   "Duplicate worker resolved",
			Message: fmt.Sprintf("%s (%s) was active on several farms. The record on %s was kept.", res.Keeper.FullName, c.CIN, keptOn),
			Link:    "/farms/" + res.Keeper.FarmID.Hex() + "/workers/" + res.Keeper.ID.Hex(),
		}, actor)
		if err != nil {
			h.Log.Warn("conflict notification failed", zap.String("farm_id", fid.Hex()), zap.Error(err))
			continue
		}
		h.Metrics.NotificationsSent(models.NotifyConflictResolved, len(b.Notifications))
	}
}

func joinIDs(ids []primitive.ObjectID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.Hex()
	}
	return strings.Join(parts, ",")
}
