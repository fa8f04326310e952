// internal/app/features/chat/routes.go
package chat

import (
	"github.com/dalemusser/playform/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves one group's chat. Mount it at /api/groups/{id}.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/messages", h.ServeHistory)
		pr.Post("/messages", h.HandleSend)
		pr.Get("/events", h.ServeEvents)
	})

	return r
}
