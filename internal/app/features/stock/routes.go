// internal/app/features/stock/routes.go
package stock

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /farms/{farmID}/stock.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireFarmAccess)

	r.Get("/", h.ServeList)
	r.Get("/low", h.ServeLow)
	r.Post("/", h.HandleCreate)
	r.Get("/{itemID}", h.ServeGet)
	r.Put("/{itemID}", h.HandleSetMinimum)
	r.Post("/{itemID}/adjust", h.HandleAdjust)
	r.Delete("/{itemID}", h.HandleDelete)
	return r
}
