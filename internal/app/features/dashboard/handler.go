// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB     *mongo.Database
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger

	loader *Loader
	now    func() time.Time
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		ErrLog: errLog,
		Log:    logger,
		loader: NewLoader(db),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ServeDashboard handles GET /dashboard. Superadmins see every farm,
// admins only their own.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	farm, ok := authz.FarmScope(r)
	if !ok {
		uierrors.RenderForbidden(w, "no farm is assigned to this account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	now := h.now()
	snap, err := h.loader.Load(ctx, farm, now.Add(-Window))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load dashboard snapshot failed", err, "A database error occurred.")
		return
	}
	stats := Compute(snap, now)
	h.Log.Debug("dashboard computed",
		zap.Int("farms", len(snap.Farms)),
		zap.Int("workers", len(snap.Workers)),
		zap.Duration("elapsed", time.Since(now)))
	respond.OK(w, stats)
}
