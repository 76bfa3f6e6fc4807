// internal/app/features/farms/routes.go
package farms

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Farm routes under the base path
// (typically "/farms" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	// Admins see their own farm; superadmins see all of them.
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole("superadmin"))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
