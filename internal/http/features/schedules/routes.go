package schedules

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the authenticated scheduling API.
func (h *Handler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/v1/schedules", h.Create)
		r.Get("/v1/schedules", h.List)
		r.Get("/v1/schedules/stats", h.Stats)
		r.Get("/v1/schedules/{id}", h.Get)
		r.Patch("/v1/schedules/{id}/reschedule", h.Reschedule)
		r.Post("/v1/schedules/{id}/confirm", h.Confirm)
		r.Post("/v1/schedules/{id}/cancel", h.Cancel)
		r.Post("/v1/schedules/{id}/complete", h.Complete)
		r.Post("/v1/schedules/{id}/no-show", h.NoShow)
	})
}
