// internal/app/features/articles/routes.go
package articles

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /article-names. Every signed-in user may read the
// catalogue; only superadmins change it.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)

	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole("superadmin"))
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
	return r
}
