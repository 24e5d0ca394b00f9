// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/v1/group.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAuth)

	r.Post("/create", h.Create)
	r.Post("/add-user", h.AddUser)
	r.Post("/add-note", h.AddNote)
	r.Get("/dapat", h.ListMine)
	r.Get("/dapat/{id}", h.Get)
	r.Get("/group/notes/{id}", h.ListNotes)

	return r
}
