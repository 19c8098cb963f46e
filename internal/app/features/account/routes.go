// internal/app/features/account/routes.go
package account

import (
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
		pr.Get("/logins", h.ServeLogins)
	})
	return r
}
