// internal/app/features/settings/routes.go
package settings

import (
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/settings. All routes require a signed-in user.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeSettings)
	r.Put("/", h.HandleUpdate)
	r.Post("/reset", h.HandleReset)
	return r
}
