// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// HandleLogout handles POST /logout. It answers 204 whether or not
// anyone was signed in.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		if id := u.ObjectID(); !id.IsZero() {
			h.AuditLog.Logout(r.Context(), r, id)
		}
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	respond.NoContent(w)
}
