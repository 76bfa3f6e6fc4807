// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the user manager under /users. Superadmin only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole("superadmin"))

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Post("/{id}/password", h.HandleSetPassword)
	r.Post("/{id}/disable", h.HandleDisable)
	r.Post("/{id}/enable", h.HandleEnable)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
