// internal/app/features/securitycodes/routes.go
package securitycodes

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /security-codes (superadmin only).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole("superadmin"))

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/{id}/deactivate", h.HandleDeactivate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
