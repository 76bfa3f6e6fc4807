// internal/app/features/workers/workers.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/inputval"
	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/paging"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dateLayout = "2006-01-02"

// identityInput holds the fields shared by create and update.
type identityInput struct {
	FullName  string `json:"full_name" validate:"required,max=120" label:"Full name"`
	CIN       string `json:"cin" validate:"required,cin" label:"CIN"`
	Gender    string `json:"gender" validate:"required,gender" label:"Gender"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02" label:"Birth date"`
	Age       *int   `json:"age" validate:"omitempty,gte=0,lte=120" label:"Age"`
	Phone     string `json:"phone" validate:"max=30" label:"Phone"`
	RoomID    string `json:"room_id" validate:"omitempty,objectid" label:"Room"`
}

type createInput struct {
	identityInput
	EntryDate string `json:"entry_date" validate:"omitempty,datetime=2006-01-02" label:"Entry date"`
}

// maxReasonLen bounds an exit reason after markup is stripped.
const maxReasonLen = 60

type departureInput struct {
	ExitDate string `json:"exit_date" validate:"omitempty,datetime=2006-01-02" label:"Exit date"`
	Reason   string `json:"reason" validate:"max=60" label:"Reason"`
}

type deleteInput struct {
	SecurityCode string `json:"security_code" validate:"required" label:"Security code"`
}

type listResponse struct {
	Workers []models.Worker `json:"workers"`
	Page    paging.Page     `json:"page"`
}

// bindIdentity decodes a worker payload, normalizes CIN and gender so
// "ab-123 456" and "Homme" are accepted, then validates it.
func bindIdentity(w http.ResponseWriter, r *http.Request, dst any, id *identityInput) bool {
	if err := respond.Decode(r, dst); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body", err.Error())
		return false
	}
	id.CIN = normalize.CIN(id.CIN)
	id.Gender = normalize.Gender(id.Gender)
	res := inputval.Validate(dst)
	if !res.HasErrors() && id.BirthDate == "" && id.Age == nil {
		res.Errors = append(res.Errors, inputval.FieldError{Field: "BirthDate", Message: "Birth date or age is required."})
	}
	if res.HasErrors() {
		uierrors.RenderInvalid(w, res)
		return false
	}
	return true
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// ageAt returns the age to record for a worker entering at entry. A
// birth date wins over a declared age.
func (h *Handler) ageAt(in identityInput, entry time.Time) (int, string) {
	age := 0
	if birth := parseDate(in.BirthDate); birth != nil {
		if birth.After(time.Now().UTC()) {
			return 0, "Birth date is in the future."
		}
		age = models.AgeAt(*birth, entry)
	} else {
		age = *in.Age
	}
	if age < h.MinAge || age > h.MaxAge {
		return age, fmt.Sprintf("Age %d is outside the accepted range %d-%d.", age, h.MinAge, h.MaxAge)
	}
	return age, ""
}

func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, workerstore.ErrNotFound):
		uierrors.RenderNotFound(w, "worker")
	case errors.Is(err, workerstore.ErrStale):
		uierrors.RenderConflict(w, "worker was modified by someone else; reload and try again")
	case errors.Is(err, roomstore.ErrNotFound):
		uierrors.RenderBadRequest(w, "room does not belong to this farm")
	case errors.Is(err, roomstore.ErrRoomFull), errors.Is(err, roomstore.ErrGenderMismatch):
		uierrors.RenderConflict(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
	}
}

// checkCIN refuses a CIN already held by an active worker other than self.
// Returns false after writing the response.
func (h *Handler) checkCIN(ctx context.Context, w http.ResponseWriter, r *http.Request, farmID primitive.ObjectID, cin string, self primitive.ObjectID) bool {
	holders, err := h.workers.ActiveByCINs(ctx, []string{cin})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "check CIN failed", err, "A database error occurred.")
		return false
	}
	for _, other := range holders {
		if other.ID == self {
			continue
		}
		if other.FarmID == farmID {
			uierrors.RenderConflict(w, "a worker with this CIN is already active on this farm")
			return false
		}
		name := other.FarmID.Hex()
		if names, err := h.farms.Names(ctx, []primitive.ObjectID{other.FarmID}); err == nil && names[other.FarmID] != "" {
			name = names[other.FarmID]
		}
		uierrors.RenderConflict(w, "CIN is active on farm "+name, "move the worker with a transfer instead")
		return false
	}
	return true
}

// roomFor loads the room a worker of gender should move into.
func (h *Handler) roomFor(ctx context.Context, w http.ResponseWriter, r *http.Request, farmID primitive.ObjectID, hex, gender string) (*models.Room, bool) {
	id, err := formutil.OptionalID(hex)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid room id")
		return nil, false
	}
	if id == nil {
		return nil, true
	}
	room, err := h.rooms.GetOnFarm(ctx, farmID, *id)
	if err != nil {
		h.renderStoreError(w, r, err, "load room")
		return nil, false
	}
	if room.Status == models.StatusDisabled {
		uierrors.RenderConflict(w, "room is disabled")
		return nil, false
	}
	if !room.Accepts(gender) {
		uierrors.RenderConflict(w, roomstore.ErrGenderMismatch.Error())
		return nil, false
	}
	return &room, true
}

// ServeList handles GET /farms/{farmID}/workers[?status=&gender=&room_id=&q=].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	roomID, err := formutil.OptionalID(query.Get(r, "room_id"))
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid room id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, page, err := h.workers.List(ctx, workerstore.ListFilter{
		FarmID: farmID,
		Status: query.Get(r, "status"),
		Gender: normalize.Gender(query.Get(r, "gender")),
		RoomID: roomID,
		Search: query.Get(r, "q"),
	}, paging.FromRequest(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workers failed", err, "A database error occurred.")
		return
	}
	if rows == nil {
		rows = []models.Worker{}
	}
	respond.OK(w, listResponse{Workers: rows, Page: page})
}

// ServeGet handles GET /farms/{farmID}/workers/{workerID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "workerID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wk, err := h.workers.GetOnFarm(ctx, farmID, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load worker")
		return
	}
	respond.OK(w, wk)
}
