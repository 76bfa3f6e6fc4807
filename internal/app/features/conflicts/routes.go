// internal/app/features/conflicts/routes.go
package conflicts

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /conflicts. Everything here is superadmin only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole("superadmin"))

	r.Get("/", h.ServeReport)
	r.Post("/resolve", h.HandleResolve)
	return r
}
