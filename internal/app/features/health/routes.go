// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes is mounted under /health. HEAD serves probes that skip the body.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	r.Head("/", h.Serve)
	return r
}
