package confirm

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the public confirmation routes. The paths
// match the links existing email templates were built around.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/confirm-account", h.VerifyEmail)
	r.Post("/schedules/confirm/{token}", h.ConfirmSchedule)
	r.Post("/schedules/cancel/{token}", h.CancelSchedule)
}
