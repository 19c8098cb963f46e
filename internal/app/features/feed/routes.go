// internal/app/features/feed/routes.go
package feed

import (
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/feed. Every feed needs a signed-in caller.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeHome)
	r.Get("/trending", h.ServeTrending)
	r.Get("/category/{category}", h.ServeCategory)
	return r
}
