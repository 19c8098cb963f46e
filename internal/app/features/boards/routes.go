// internal/app/features/boards/routes.go
package boards

import (
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/boards.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// privacy rules decide; anonymous callers see public boards
	r.Get("/{id}", h.ServeBoard)
	r.Get("/{id}/pins", h.ServePins)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)

		pr.Post("/{id}/pins", h.HandleAddPin)
		pr.Delete("/{id}/pins/{pinID}", h.HandleRemovePin)

		pr.Post("/{id}/collaborators", h.HandleAddCollaborator)
		pr.Delete("/{id}/collaborators/{userID}", h.HandleRemoveCollaborator)
	})
	return r
}
