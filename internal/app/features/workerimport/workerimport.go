// internal/app/features/workerimport/workerimport.go
package workerimport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/features/workerimport/importutil"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	stockstore "github.com/dalemusser/dormhub/internal/app/store/stock"
	workerstore "github.com/dalemusser/dormhub/internal/app/store/workers"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/app/system/txn"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// previewView is the body returned for a preview.
type previewView struct {
	Preview
	Rows    []importutil.Checked `json:"rows"`
	Summary importutil.Summary   `json:"summary"`
}

// HandlePreview handles POST /farms/{farmID}/imports/preview.
//
// The multipart field "file" holds an .xlsx, .xls or .csv sheet. Headers
// are matched, rows parsed and validated against the farm, and the parsed
// rows kept as a preview for PreviewTTL. Nothing is written to workers.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, importutil.MaxUploadSize+1<<20)
	file, fh, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, http.StatusRequestEntityTooLarge, importutil.ErrTooLarge.Error())
			return
		}
		uierrors.RenderBadRequest(w, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	records, err := importutil.ReadRows(file, fh.Filename)
	switch {
	case errors.Is(err, importutil.ErrTooLarge):
		respond.Error(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	ref, articles, err := h.loadRef(ctx, farmID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load import reference failed", err, "A database error occurred.")
		return
	}
	header, _ := importutil.Header(records)
	m := importutil.MatchHeaders(header, h.Aliases, articles)
	if !m.Complete() {
		respond.Error(w, http.StatusUnprocessableEntity, "required columns are missing", m.Missing...)
		return
	}
	rows := importutil.ParseRows(records, m)

	if err := h.addActive(ctx, ref, rows); err != nil {
		h.ErrLog.LogServerError(w, r, "load import reference failed", err, "A database error occurred.")
		return
	}

	_, _, userID, _ := authz.UserCtx(r)
	p, err := h.previews.Save(ctx, Preview{
		FarmID:    farmID,
		CreatedBy: userID,
		FileName:  fh.Filename,
		Mapping:   m,
		Rows:      rows,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "save import preview failed", err, "A database error occurred.")
		return
	}
	res := importutil.Validate(rows, ref, h.options())
	h.Metrics.ImportRows("previewed", len(rows))
	respond.Created(w, previewView{Preview: p, Rows: res.Rows, Summary: res.Summary})
}

// ServePreview handles GET /farms/{farmID}/imports/{token}. Rows are
// re-validated so the result reflects the farm as it is now.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.loadPreview(ctx, w, r, farmID)
	if !ok {
		return
	}
	h.respondChecked(ctx, w, r, p, http.StatusOK)
}

// HandleEditRow handles PUT /farms/{farmID}/imports/{token}/rows/{line}.
// The body is a row; its line is taken from the URL.
func (h *Handler) HandleEditRow(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	line, err := strconv.Atoi(chi.URLParam(r, "line"))
	if err != nil || line < 1 {
		uierrors.RenderBadRequest(w, "invalid line number")
		return
	}
	var row importutil.Row
	if err := respond.Decode(r, &row); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body", err.Error())
		return
	}
	row.Line = line
	if row.BirthDate != "" {
		row.BirthDate = importutil.NormalizeDate(row.BirthDate)
	}
	if row.EntryDate != "" {
		row.EntryDate = importutil.NormalizeDate(row.EntryDate)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	token := chi.URLParam(r, "token")
	switch err := h.previews.ReplaceRow(ctx, farmID, token, row); {
	case errors.Is(err, ErrPreviewNotFound):
		uierrors.RenderNotFound(w, "import preview")
		return
	case errors.Is(err, ErrRowNotFound):
		uierrors.RenderNotFound(w, "row")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "edit import row failed", err, "A database error occurred.")
		return
	}
	p, ok := h.loadPreview(ctx, w, r, farmID)
	if !ok {
		return
	}
	h.respondChecked(ctx, w, r, p, http.StatusOK)
}

// HandleDiscard handles DELETE /farms/{farmID}/imports/{token}.
func (h *Handler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.previews.Delete(ctx, farmID, chi.URLParam(r, "token")); err != nil {
		if errors.Is(err, ErrPreviewNotFound) {
			uierrors.RenderNotFound(w, "import preview")
			return
		}
		h.ErrLog.LogServerError(w, r, "discard import preview failed", err, "A database error occurred.")
		return
	}
	respond.NoContent(w)
}

type commitInput struct {
	SkipInvalid bool `json:"skip_invalid"`
}

// CommitResult reports what a commit wrote.
type CommitResult struct {
	Imported  int                  `json:"imported"`
	Skipped   int                  `json:"skipped"`
	WorkerIDs []primitive.ObjectID `json:"worker_ids"`
	Issues    []importutil.Issue   `json:"issues,omitempty"`
}

// HandleCommit handles POST /farms/{farmID}/imports/{token}/commit.
//
// Rows are validated again against the current farm. Invalid rows refuse
// the commit unless skip_invalid is set, in which case only valid rows
// are written. Beds, stock and workers are written in one transaction so
// a commit is all or nothing.
func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	farmID, ok := formutil.IDParam(w, r, "farmID")
	if !ok {
		return
	}
	var in commitInput
	if !formutil.Bind(w, r, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, ok := h.loadPreview(ctx, w, r, farmID)
	if !ok {
		return
	}
	ref, err := h.fullRef(ctx, farmID, p.Rows)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load import reference failed", err, "A database error occurred.")
		return
	}
	res := importutil.Validate(p.Rows, ref, h.options())
	if res.Summary.Invalid > 0 && !in.SkipInvalid {
		uierrors.RenderConflict(w,
			fmt.Sprintf("%d of %d rows are invalid", res.Summary.Invalid, res.Summary.Total),
			issueMessages(res.Issues())...)
		return
	}
	valid := res.ValidRows()
	if len(valid) == 0 {
		uierrors.RenderConflict(w, "no valid rows to import")
		return
	}

	workers := make([]models.Worker, len(valid))
	for i, v := range valid {
		workers[i] = toWorker(farmID, v)
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		for i, v := range valid {
			if v.Room != nil {
				if err := h.rooms.AddOccupant(ctx, v.Room.ID, workers[i].ID); err != nil {
					return fmt.Errorf("line %d: %w", p.lineOf(v.CIN), err)
				}
			}
			for _, a := range v.Allocations {
				if _, err := h.stock.Take(ctx, farmID, a.ArticleNameID, a.Quantity); err != nil {
					return fmt.Errorf("line %d: %s: %w", p.lineOf(v.CIN), a.ArticleName, err)
				}
			}
		}
		return h.workers.InsertMany(ctx, workers)
	})
	switch {
	case errors.Is(err, roomstore.ErrRoomFull), errors.Is(err, stockstore.ErrInsufficient),
		errors.Is(err, roomstore.ErrNotFound), errors.Is(err, stockstore.ErrNotFound):
		uierrors.RenderConflict(w, "the farm changed during the import; review the preview and retry", err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "commit import failed", err, "A database error occurred.")
		return
	}

	if err := h.previews.Delete(ctx, farmID, p.Token); err != nil && !errors.Is(err, ErrPreviewNotFound) {
		h.Log.Warn("delete committed preview failed", zap.String("token", p.Token), zap.Error(err))
	}

	out := CommitResult{
		Imported:  len(workers),
		Skipped:   res.Summary.Invalid,
		WorkerIDs: make([]primitive.ObjectID, len(workers)),
	}
	for i, wk := range workers {
		out.WorkerIDs[i] = wk.ID
	}
	if out.Skipped > 0 {
		out.Issues = res.Issues()
	}
	h.Metrics.ImportRows("committed", out.Imported)
	h.Metrics.ImportRows("skipped", out.Skipped)

	h.AuditLog.Admin(ctx, r, auditlog.Action{
		EventType: audit.EventImportCommitted,
		Entity:    "worker",
		FarmID:    &farmID,
		Details: map[string]string{
			"file":     p.FileName,
			"imported": strconv.Itoa(out.Imported),
			"skipped":  strconv.Itoa(out.Skipped),
		},
	})
	h.announce(ctx, r, farmID, p.FileName, out)

	respond.OK(w, out)
}

// announce tells the other admins of the farm about a commit. Failures
// are only logged.
func (h *Handler) announce(ctx context.Context, r *http.Request, farmID primitive.ObjectID, file string, out CommitResult) {
	_, name, actor, _ := authz.UserCtx(r)
	b, err := h.notify.SendToFarm(ctx, farmID, notificationstore.Message{
		Type:    models.NotifyImportCommitted,
		Title:   "Workers imported",
		Message: fmt.Sprintf("%s imported %d workers from %s (%d rows skipped).", name, out.Imported, file, out.Skipped),
		Link:    "/farms/" + farmID.Hex() + "/workers",
		FarmID:  &farmID,
	}, actor)
	if err != nil {
		h.Log.Warn("import notification failed", zap.String("farm_id", farmID.Hex()), zap.Error(err))
		return
	}
	h.Metrics.NotificationsSent(models.NotifyImportCommitted, len(b.Notifications))
}

func (h *Handler) options() importutil.Options {
	return importutil.Options{MinAge: h.MinAge, MaxAge: h.MaxAge}
}

func (h *Handler) loadPreview(ctx context.Context, w http.ResponseWriter, r *http.Request, farmID primitive.ObjectID) (Preview, bool) {
	p, err := h.previews.Get(ctx, farmID, chi.URLParam(r, "token"))
	if errors.Is(err, ErrPreviewNotFound) {
		uierrors.RenderNotFound(w, "import preview")
		return Preview{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load import preview failed", err, "A database error occurred.")
		return Preview{}, false
	}
	return p, true
}

func (h *Handler) respondChecked(ctx context.Context, w http.ResponseWriter, r *http.Request, p Preview, status int) {
	ref, err := h.fullRef(ctx, p.FarmID, p.Rows)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load import reference failed", err, "A database error occurred.")
		return
	}
	res := importutil.Validate(p.Rows, ref, h.options())
	respond.JSON(w, status, previewView{Preview: p, Rows: res.Rows, Summary: res.Summary})
}

// loadRef reads the rooms and stock of farmID. It also returns the
// stocked article names, which MatchHeaders accepts as allocation columns.
func (h *Handler) loadRef(ctx context.Context, farmID primitive.ObjectID) (*importutil.Ref, []string, error) {
	ref := &importutil.Ref{
		FarmID: farmID,
		Rooms:  map[string]importutil.RoomRef{},
		Stock:  map[string]importutil.StockRef{},
		Active: map[string]importutil.ActiveRef{},
	}
	rooms, err := h.rooms.ListByFarm(ctx, farmID)
	if err != nil {
		return nil, nil, err
	}
	for _, rm := range rooms {
		ref.Rooms[importutil.RoomKey(rm.Number)] = importutil.RoomRef{
			ID:       rm.ID,
			Number:   rm.Number,
			Gender:   rm.Gender,
			Capacity: rm.Capacity,
			Occupied: len(rm.OccupantIDs),
			Disabled: rm.Status == models.StatusDisabled,
		}
	}
	items, err := h.stock.ListByFarm(ctx, farmID)
	if err != nil {
		return nil, nil, err
	}
	articles := make([]string, 0, len(items))
	for _, it := range items {
		ref.Stock[importutil.ArticleKey(it.ArticleName)] = importutil.StockRef{
			ArticleNameID: it.ArticleNameID,
			Name:          it.ArticleName,
			Quantity:      it.Quantity,
		}
		articles = append(articles, it.ArticleName)
	}
	return ref, articles, nil
}

// addActive records the active workers, on any farm, holding the CINs of rows.
func (h *Handler) addActive(ctx context.Context, ref *importutil.Ref, rows []importutil.Row) error {
	cins := make([]string, 0, len(rows))
	for _, row := range rows {
		if c := normalize.CIN(row.CIN); c != "" {
			cins = append(cins, c)
		}
	}
	active, err := h.workers.ActiveByCINs(ctx, cins)
	if err != nil {
		return err
	}
	farmIDs := make([]primitive.ObjectID, 0, len(active))
	for _, a := range active {
		farmIDs = append(farmIDs, a.FarmID)
	}
	names, err := h.farms.Names(ctx, farmIDs)
	if err != nil {
		return err
	}
	for _, a := range active {
		ref.Active[a.CIN] = importutil.ActiveRef{WorkerID: a.ID, FarmID: a.FarmID, FarmName: names[a.FarmID]}
	}
	return nil
}

func (h *Handler) fullRef(ctx context.Context, farmID primitive.ObjectID, rows []importutil.Row) (*importutil.Ref, error) {
	ref, _, err := h.loadRef(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if err := h.addActive(ctx, ref, rows); err != nil {
		return nil, err
	}
	return ref, nil
}

func toWorker(farmID primitive.ObjectID, v importutil.Resolved) models.Worker {
	age := v.Age
	wk := models.Worker{
		FarmID:      farmID,
		FullName:    v.FullName,
		CIN:         v.CIN,
		Gender:      v.Gender,
		BirthDate:   v.BirthDate,
		Age:         &age,
		Phone:       v.Phone,
		EntryDate:   v.EntryDate,
		Allocations: v.Allocations,
	}
	if v.Room != nil {
		id := v.Room.ID
		wk.RoomID = &id
		wk.RoomNumber = v.Room.Number
	}
	return workerstore.Prepare(wk, models.ReasonImport)
}

// lineOf returns the file line of the row holding cin.
func (p Preview) lineOf(cin string) int {
	for _, row := range p.Rows {
		if normalize.CIN(row.CIN) == cin {
			return row.Line
		}
	}
	return 0
}

func issueMessages(issues []importutil.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		if is.Severity != importutil.SeverityError {
			continue
		}
		out = append(out, fmt.Sprintf("line %d: %s", is.Line, is.Message))
	}
	return out
}
