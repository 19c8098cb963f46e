// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/profile.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// profile_visibility decides; anonymous callers see public profiles
	r.Get("/{username}", h.ServePublic)
	r.Get("/{username}/followers", h.ServeFollowers)
	r.Get("/{username}/following", h.ServeFollowing)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeProfile)
		pr.Put("/", h.HandleUpdate)
		pr.Delete("/", h.HandleDelete)
		pr.Post("/{username}/follow", h.HandleFollow)
		pr.Post("/{username}/unfollow", h.HandleUnfollow)
	})
	return r
}
