// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	userstore "github.com/dalemusser/dormhub/internal/app/store/users"
	"github.com/dalemusser/dormhub/internal/app/system/auditlog"
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/dalemusser/dormhub/internal/app/system/inputval"
	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/app/system/ratelimit"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter
	users      *userstore.Store
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   audit,
		Limiter:    ratelimit.NewLoginLimiter(),
		users:      userstore.New(db),
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// meResponse is the signed-in user as returned by /login and /me.
type meResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	FarmID string `json:"farm_id,omitempty"`
}

func toMe(u *auth.SessionUser) meResponse {
	return meResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, FarmID: u.FarmID}
}

// HandleLogin handles POST /login.
//
// Unknown emails, wrong passwords and disabled accounts all answer the
// same 401 so the response does not reveal which accounts exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode login body failed", err, "Invalid request body.")
		return
	}
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderInvalid(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if ok, reason := h.Limiter.Check(r, in.Email); !ok {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, nil, in.Email, "rate limited")
		respond.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	u, err := h.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, in.Email, "unknown email")
		respond.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user for login failed", err, "A database error occurred.")
		return
	}
	if err := userstore.CheckPassword(u, in.Password); err != nil {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, in.Email, "wrong password")
		respond.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if u.Status != models.StatusActive {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &u.ID, in.Email, "account disabled")
		respond.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	su := &auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email, Role: u.Role}
	if u.FarmID != nil {
		su.FarmID = u.FarmID.Hex()
	}
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		h.ErrLog.LogServerError(w, r, "save session failed", err, "Could not sign you in.")
		return
	}
	h.Limiter.ResetEmail(in.Email)
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.FarmID, u.Email)
	h.Log.Info("user signed in", zap.String("user_id", su.ID), zap.String("role", su.Role))

	respond.OK(w, toMe(su))
}

// ServeMe handles GET /me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w)
		return
	}
	respond.OK(w, toMe(u))
}
