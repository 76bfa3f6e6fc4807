// internal/app/features/workers/lifecycle.go
package workers

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	securitycodestore "github.com/dalemusser/dormhub/internal/app/store/securitycodes"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/app/system/txn"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleCreate handles POST /farms/{farmID}/workers.
//
// The CIN must not belong to an active worker anywhere; the room, when
// given, must be on the farm, accept the worker's gender and have a free
// bed. The insert and the bed assignment happen in one transaction.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	var in createInput
	if !bindIdentity(w, r, &in, &in.identityInput) {
		return
	}
	entry := time.Now().UTC().Truncate(24 * time.Hour)
	if d := parseDate(in.EntryDate); d != nil {
		entry = *d
	}
	age, msg := h.ageAt(in.identityInput, entry)
	if msg != "" {
		respond.Error(w, http.StatusUnprocessableEntity, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.checkCIN(ctx, w, r, farmID, in.CIN, primitive.NilObjectID) {
		return
	}
	room, ok := h.roomFor(ctx, w, r, farmID, in.RoomID, in.Gender)
	if !ok {
		return
	}

	wk := models.Worker{
		FarmID:    farmID,
		FullName:  in.FullName,
		CIN:       in.CIN,
		Gender:    in.Gender,
		BirthDate: parseDate(in.BirthDate),
		Age:       &age,
		Phone:     in.Phone,
		EntryDate: entry,
	}
	if room != nil {
		wk.RoomID = &room.ID
		wk.RoomNumber = room.Number
	}
	wk = workerstore.Prepare(wk, models.ReasonCreated)

	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if room != nil {
			if err := h.rooms.AddOccupant(ctx, room.ID, wk.ID); err != nil {
				return err
			}
		}
		return h.workers.Insert(ctx, wk)
	})
	if err != nil {
		h.renderStoreError(w, r, err, "create worker")
		return
	}
	h.AuditLog.Created(ctx, r, "worker", wk.ID, &farmID, wk.CIN)
	respond.Created(w, wk)
}

// HandleUpdate handles PUT /farms/{farmID}/workers/{workerID}. Moving an
// active worker to another room updates both rooms' occupants and the
// open stay.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "workerID")
	if !ok {
		return
	}
	var in identityInput
	if !bindIdentity(w, r, &in, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.workers.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load worker")
		return
	}
	age, msg := h.ageAt(in, cur.EntryDate)
	if msg != "" {
		respond.Error(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if cur.IsActive() && in.CIN != cur.CIN && !h.checkCIN(ctx, w, r, farmID, in.CIN, cur.ID) {
		return
	}
	if !cur.IsActive() && in.RoomID != "" {
		uierrors.RenderConflict(w, "only active workers can be housed")
		return
	}
	room, ok := h.roomFor(ctx, w, r, farmID, in.RoomID, in.Gender)
	if !ok {
		return
	}

	next := cur
	next.FullName = normalize.Name(in.FullName)
	next.CIN = in.CIN
	next.Gender = in.Gender
	next.BirthDate = parseDate(in.BirthDate)
	next.Age = &age
	next.Phone = normalize.Phone(in.Phone)
	next.History = append([]models.Stay(nil), cur.History...)

	var from, to *primitive.ObjectID
	if cur.IsActive() {
		next.RoomID, next.RoomNumber = nil, ""
		if room != nil {
			next.RoomID = &room.ID
			next.RoomNumber = room.Number
		}
		if !sameRoom(cur.RoomID, next.RoomID) {
			from, to = cur.RoomID, next.RoomID
			if i := next.OpenStayIndex(); i >= 0 {
				next.History[i].RoomID = next.RoomID
			}
		}
	}

	var saved models.Worker
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if to != nil {
			if err := h.rooms.AddOccupant(ctx, *to, cur.ID); err != nil {
				return err
			}
		}
		if from != nil {
			if err := h.rooms.RemoveOccupant(ctx, *from, cur.ID); err != nil {
				return err
			}
		}
		var err error
		saved, err = h.workers.Replace(ctx, next)
		return err
	})
	if err != nil {
		h.renderStoreError(w, r, err, "update worker")
		return
	}
	h.AuditLog.Updated(ctx, r, "worker", id, &farmID, "full_name,cin,gender,birth_date,age,phone,room_id")
	respond.OK(w, saved)
}

// HandleDeparture handles POST /farms/{farmID}/workers/{workerID}/departure.
// The open stay is closed at the exit date and the bed is freed.
func (h *Handler) HandleDeparture(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "workerID")
	if !ok {
		return
	}
	var in departureInput
	if !formutil.Bind(w, r, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.workers.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load worker")
		return
	}
	if !cur.IsActive() {
		uierrors.RenderConflict(w, "worker is not active")
		return
	}
	exit := time.Now().UTC().Truncate(time.Millisecond)
	if d := parseDate(in.ExitDate); d != nil {
		exit = *d
	}
	if exit.Before(cur.EntryDate) {
		respond.Error(w, http.StatusUnprocessableEntity, "Exit date is before the entry date.")
		return
	}
	reason := htmlsanitize.PlainTextMax(in.Reason, maxReasonLen)
	if reason == "" {
		reason = models.ReasonDeparture
	}

	next := depart(cur, exit, reason)
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if cur.RoomID != nil {
			if err := h.rooms.RemoveOccupant(ctx, *cur.RoomID, cur.ID); err != nil {
				return err
			}
		}
		var err error
		next, err = h.workers.Replace(ctx, next)
		return err
	})
	if err != nil {
		h.renderStoreError(w, r, err, "record departure")
		return
	}
	h.AuditLog.Admin(ctx, r, auditlog.Action{
		EventType: audit.EventWorkerDeparted,
		Entity:    "worker",
		TargetID:  &id,
		FarmID:    &farmID,
		Details:   map[string]string{"reason": reason, "exit_date": exit.Format(dateLayout)},
	})
	respond.OK(w, next)
}

func sameRoom(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// depart returns w as it must be stored after leaving at exit: departed,
// out of its room, and with every open stay closed no earlier than it
// started.
func depart(w models.Worker, exit time.Time, reason string) models.Worker {
	out := w
	out.Status = models.WorkerDeparted
	out.ExitDate = &exit
	out.ExitReason = reason
	out.RoomID = nil
	out.RoomNumber = ""
	out.History = make([]models.Stay, len(w.History))
	copy(out.History, w.History)
	for i := range out.History {
		if !out.History[i].Open() {
			continue
		}
		end := exit
		if end.Before(out.History[i].Start) {
			end = out.History[i].Start
		}
		out.History[i].End = &end
	}
	return out
}

// HandleDelete handles DELETE /farms/{farmID}/workers/{workerID}. The body
// must carry a security code valid for worker deletion on this farm.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "workerID")
	if !ok {
		return
	}
	var in deleteInput
	if !formutil.Bind(w, r, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wk, err := h.workers.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load worker")
		return
	}
	code, err := h.codes.Verify(ctx, in.SecurityCode, models.PurposeWorkerDelete, &farmID)
	if err != nil {
		if errors.Is(err, securitycodestore.ErrInvalidCode) {
			h.AuditLog.Admin(ctx, r, auditlog.Action{
				EventType: audit.EventSecurityCodeDenied,
				Entity:    "worker",
				TargetID:  &id,
				FarmID:    &farmID,
				Failure:   "invalid security code",
			})
			uierrors.RenderForbidden(w, err.Error())
			return
		}
		h.ErrLog.LogServerError(w, r, "verify security code failed", err, "A database error occurred.")
		return
	}
	open, err := h.transfers.OpenForWorkers(ctx, []primitive.ObjectID{id}, primitive.NilObjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "check transfers failed", err, "A database error occurred.")
		return
	}
	if len(open) > 0 {
		uierrors.RenderConflict(w, "worker is part of an open transfer")
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.rooms.RemoveFromAll(ctx, id); err != nil {
			return err
		}
		return h.workers.Delete(ctx, farmID, id)
	})
	if err != nil {
		h.renderStoreError(w, r, err, "delete worker")
		return
	}
	h.AuditLog.Admin(ctx, r, auditlog.Action{
		EventType: audit.EventDeleted,
		Entity:    "worker",
		TargetID:  &id,
		FarmID:    &farmID,
		Details:   map[string]string{"label": wk.CIN, "security_code": code.Label},
	})
	respond.NoContent(w)
}
