// internal/app/features/workerimport/routes.go
package workerimport

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /farms/{farmID}/imports.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireFarmAccess)

	r.Post("/preview", h.HandlePreview)
	r.Get("/{token}", h.ServePreview)
	r.Put("/{token}/rows/{line}", h.HandleEditRow)
	r.Post("/{token}/commit", h.HandleCommit)
	r.Delete("/{token}", h.HandleDiscard)
	return r
}
