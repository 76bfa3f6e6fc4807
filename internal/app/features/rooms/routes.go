// internal/app/features/rooms/routes.go
package rooms

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /farms/{farmID}/rooms. The farm's admin or a
// superadmin may use every route.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireFarmAccess)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{roomID}", h.ServeGet)
	r.Put("/{roomID}", h.HandleUpdate)
	r.Delete("/{roomID}", h.HandleDelete)
	return r
}
