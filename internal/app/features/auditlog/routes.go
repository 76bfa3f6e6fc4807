// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log under /audit.
//
// Superadmins see every event; farm admins see only events recorded
// against their farm.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/event-types", h.ServeEventTypes)
	return r
}
