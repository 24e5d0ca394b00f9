// internal/app/features/notes/routes.go
package notes

import (
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/v1/note. Every route requires
// a signed-in caller and only touches that caller's notes.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAuth)

	r.Post("/create", h.Create)
	r.Get("/dapatsemua", h.List)
	r.Get("/dapat/{id}", h.Get)
	r.Put("/update/{id}", h.Update)
	r.Delete("/delete/{id}", h.Delete)

	return r
}
