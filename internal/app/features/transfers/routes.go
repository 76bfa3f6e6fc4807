// internal/app/features/transfers/routes.go
package transfers

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /transfers. Which side of a transfer may act is
// checked per handler: the origin creates and cancels, the destination
// assigns, commits and rejects.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeGet)
	r.Post("/{id}/assign", h.HandleAssign)
	r.Post("/{id}/commit", h.HandleCommit)
	r.Post("/{id}/reject", h.HandleReject)
	r.Post("/{id}/cancel", h.HandleCancel)
	return r
}
