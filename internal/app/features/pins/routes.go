// internal/app/features/pins/routes.go
package pins

import (
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/pins. Reads work anonymously and show more
// to a signed-in caller; writes require a token.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/search", h.ServeSearch)
	r.Get("/{id}", h.ServePin)
	r.Post("/{id}/click", h.HandleClick)
	r.Get("/{id}/comments", h.ServeComments)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/saved", h.ServeSaved)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/save", h.HandleSave)
		pr.Delete("/{id}/save", h.HandleUnsave)
		pr.Get("/{id}/stats", h.ServeStats)
		pr.Post("/{id}/comments", h.HandleCreateComment)
		pr.Delete("/{id}/comments/{commentID}", h.HandleDeleteComment)
	})
	return r
}
