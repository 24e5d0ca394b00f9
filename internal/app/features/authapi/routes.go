// internal/app/features/authapi/routes.go
package authapi

import (
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/v1/auth.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset/{token}", h.ResetPassword)

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireAuth)
		pr.Post("/logout", h.Logout)
		pr.Get("/name", h.Name)
		pr.Put("/status", h.UpdateStatus)
		pr.Get("/status", h.GetStatus)
	})

	return r
}
