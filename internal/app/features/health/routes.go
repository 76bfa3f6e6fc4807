// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes mounts under /health. The root checks MongoDB; /live only says
// the process is serving.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	r.Head("/", h.Serve)
	r.Get("/live", h.ServeLive)
	return r
}
