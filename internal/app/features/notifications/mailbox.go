// internal/app/features/notifications/mailbox.go
package notifications

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/paging"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func recipient(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	_, _, id, ok := authz.UserCtx(r)
	if !ok || id.IsZero() {
		uierrors.RenderUnauthorized(w)
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeList handles GET /notifications?unread=1&limit=N, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	unread := query.Get(r, "unread") == "1" || query.Get(r, "unread") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, err := h.store.List(ctx, me, unread, int64(paging.ParseLimit(r)))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list notifications failed", err, "A database error occurred.")
		return
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	respond.OK(w, map[string]any{"notifications": rows})
}

// ServeUnreadCount handles GET /notifications/unread_count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.store.UnreadCount(ctx, me)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count unread notifications failed", err, "A database error occurred.")
		return
	}
	respond.OK(w, map[string]int64{"unread": n})
}

// HandleMarkAllRead handles POST /notifications/read_all.
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.store.MarkAllRead(ctx, me)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark all notifications read failed", err, "A database error occurred.")
		return
	}
	respond.OK(w, map[string]int64{"updated": n})
}

// HandleMarkRead handles POST /notifications/{id}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "mark notification read", h.store.MarkRead)
}

// HandleAcknowledge handles POST /notifications/{id}/ack.
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "acknowledge notification", h.store.Acknowledge)
}

// HandleDelete handles DELETE /notifications/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "delete notification", h.store.Delete)
}

// mutate applies op to one of the caller's notifications. Another user's
// notification is reported as not found.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, what string,
	op func(ctx context.Context, recipient, id primitive.ObjectID) error) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := op(ctx, me, id); err != nil {
		if errors.Is(err, notificationstore.ErrNotFound) {
			uierrors.RenderNotFound(w, "notification")
			return
		}
		h.ErrLog.LogServerError(w, r, what+" failed", err, "A database error occurred.")
		return
	}
	respond.NoContent(w)
}
