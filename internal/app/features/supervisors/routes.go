// internal/app/features/supervisors/routes.go
package supervisors

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /farms/{farmID}/supervisors.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireFarmAccess)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{supervisorID}", h.ServeGet)
	r.Put("/{supervisorID}", h.HandleUpdate)
	r.Delete("/{supervisorID}", h.HandleDelete)
	return r
}
