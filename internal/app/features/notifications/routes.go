// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /notifications.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/unread_count", h.ServeUnreadCount)
	r.Get("/live", h.ServeLive)
	r.Post("/read_all", h.HandleMarkAllRead)
	r.Post("/{id}/read", h.HandleMarkRead)
	r.Post("/{id}/ack", h.HandleAcknowledge)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
