// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/playform/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/groups. Per-group chat routes are mounted on the
// returned router under /{id} by the caller.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Post("/join", h.HandleJoin)
	})

	return r
}
