// internal/app/features/rooms/rooms.go
package rooms

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	supervisorstore "github.com/dalemusser/dormhub/internal/app/store/supervisors"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type roomInput struct {
	Number       string `json:"number" validate:"required,max=20" label:"Room number"`
	Gender       string `json:"gender" validate:"required,roomgender" label:"Gender"`
	Capacity     int    `json:"capacity" validate:"gte=1,lte=100" label:"Capacity"`
	SupervisorID string `json:"supervisor_id" validate:"omitempty,objectid" label:"Supervisor"`
	Status       string `json:"status" validate:"omitempty,oneof=active disabled" label:"Status"`
}

// roomView adds derived occupancy to a room.
type roomView struct {
	models.Room
	Occupied int `json:"occupied"`
	FreeBeds int `json:"free_beds"`
}

type occupant struct {
	ID       primitive.ObjectID `json:"id"`
	FullName string             `json:"full_name"`
	CIN      string             `json:"cin"`
	Gender   string             `json:"gender"`
}

type roomDetail struct {
	roomView
	Occupants []occupant `json:"occupants"`
}

func view(r models.Room) roomView {
	return roomView{Room: r, Occupied: len(r.OccupantIDs), FreeBeds: r.FreeBeds()}
}

func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, roomstore.ErrNotFound):
		uierrors.RenderNotFound(w, "room")
	case errors.Is(err, roomstore.ErrDuplicateNumber),
		errors.Is(err, roomstore.ErrOccupied),
		errors.Is(err, roomstore.ErrBelowOccupants),
		errors.Is(err, roomstore.ErrGenderMismatch):
		uierrors.RenderConflict(w, err.Error())
	case errors.Is(err, roomstore.ErrBadGender), errors.Is(err, roomstore.ErrBadCapacity):
		uierrors.RenderBadRequest(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
	}
}

// supervisorFor resolves an optional supervisor that must belong to farmID.
func (h *Handler) supervisorFor(ctx context.Context, w http.ResponseWriter, r *http.Request, farmID primitive.ObjectID, hex string) (*primitive.ObjectID, bool) {
	id, err := formutil.OptionalID(hex)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid supervisor id")
		return nil, false
	}
	if id == nil {
		return nil, true
	}
	if _, err := h.supervisors.GetOnFarm(ctx, farmID, *id); err != nil {
		if errors.Is(err, supervisorstore.ErrNotFound) {
			uierrors.RenderBadRequest(w, "supervisor does not belong to this farm")
		} else {
			h.ErrLog.LogServerError(w, r, "load supervisor failed", err, "A database error occurred.")
		}
		return nil, false
	}
	return id, true
}

// ServeList handles GET /farms/{farmID}/rooms[?gender=&available=1].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	filter := bson.M{"farm_id": farmID}
	if g := query.Get(r, "gender"); g != "" {
		filter["gender"] = g
	}
	rooms, err := h.rooms.Find(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list rooms failed", err, "A database error occurred.")
		return
	}
	onlyFree := query.Get(r, "available") == "1"
	out := make([]roomView, 0, len(rooms))
	for _, rm := range rooms {
		if onlyFree && rm.FreeBeds() == 0 {
			continue
		}
		out = append(out, view(rm))
	}
	respond.OK(w, out)
}

// ServeGet handles GET /farms/{farmID}/rooms/{roomID}, including occupants.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "roomID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rm, err := h.rooms.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load room")
		return
	}
	ws, err := h.workers.GetByIDs(ctx, rm.OccupantIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load occupants failed", err, "A database error occurred.")
		return
	}
	d := roomDetail{roomView: view(rm), Occupants: make([]occupant, 0, len(ws))}
	for _, wk := range ws {
		d.Occupants = append(d.Occupants, occupant{ID: wk.ID, FullName: wk.FullName, CIN: wk.CIN, Gender: wk.Gender})
	}
	respond.OK(w, d)
}

// HandleCreate handles POST /farms/{farmID}/rooms.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	var in roomInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	supID, ok := h.supervisorFor(ctx, w, r, farmID, in.SupervisorID)
	if !ok {
		return
	}
	rm, err := h.rooms.Create(ctx, models.Room{
		FarmID:       farmID,
		Number:       in.Number,
		Gender:       in.Gender,
		Capacity:     in.Capacity,
		SupervisorID: supID,
		Status:       in.Status,
	})
	if err != nil {
		h.renderStoreError(w, r, err, "create room")
		return
	}
	h.AuditLog.Created(ctx, r, "room", rm.ID, &farmID, rm.Number)
	respond.Created(w, view(rm))
}

// HandleUpdate handles PUT /farms/{farmID}/rooms/{roomID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "roomID")
	if !ok {
		return
	}
	var in roomInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	supID, ok := h.supervisorFor(ctx, w, r, farmID, in.SupervisorID)
	if !ok {
		return
	}
	err := h.rooms.Update(ctx, farmID, id, roomstore.Update{
		Number:       in.Number,
		Gender:       in.Gender,
		Capacity:     in.Capacity,
		SupervisorID: supID,
		Status:       in.Status,
	})
	if err != nil {
		h.renderStoreError(w, r, err, "update room")
		return
	}
	h.AuditLog.Updated(ctx, r, "room", id, &farmID, "number,gender,capacity,supervisor_id,status")

	rm, err := h.rooms.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "reload room")
		return
	}
	respond.OK(w, view(rm))
}

// HandleDelete handles DELETE /farms/{farmID}/rooms/{roomID}. Occupied
// rooms are refused with 409.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "roomID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.rooms.Delete(ctx, farmID, id); err != nil {
		h.renderStoreError(w, r, err, "delete room")
		return
	}
	h.AuditLog.Deleted(ctx, r, "room", id, &farmID, "")
	respond.NoContent(w)
}
