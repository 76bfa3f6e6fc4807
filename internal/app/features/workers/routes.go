// internal/app/features/workers/routes.go
package workers

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /farms/{farmID}/workers.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireFarmAccess)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{workerID}", h.ServeGet)
	r.Put("/{workerID}", h.HandleUpdate)
	r.Post("/{workerID}/departure", h.HandleDeparture)
	r.Delete("/{workerID}", h.HandleDelete)
	return r
}
