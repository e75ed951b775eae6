// Package confirm exposes the public, unauthenticated confirmation
// endpoints. Every failure collapses to one of a few generic messages
// so token existence cannot be probed from the outside.
package confirm

import (
	"log/slog"
	"net/http"

	"github.com/atendo/booking-core/internal/http/middleware"
	"github.com/atendo/booking-core/internal/httputil"
	"github.com/atendo/booking-core/pkg/flow"
	"github.com/go-chi/chi/v5"
)

const invalidLinkMessage = "this link is invalid or has expired"

type Handler struct {
	logger *slog.Logger
	flow   *flow.Controller
}

func NewHandler(logger *slog.Logger, controller *flow.Controller) *Handler {
	return &Handler{logger: logger, flow: controller}
}

type MessageResponse struct {
	Message string `json:"message"`
}

// VerifyEmail handles account email verification.
// GET /confirm-account?token={token}
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusNotFound, "not found")
		return
	}

	outcome, err := h.flow.VerifyEmail(r.Context(), tenantID, r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Error("email verification failed", "error", err)
		httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}
	h.respond(w, outcome, "email verified successfully")
}

// ConfirmSchedule handles appointment confirmation via token.
// POST /schedules/confirm/{token}
func (h *Handler) ConfirmSchedule(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusNotFound, "not found")
		return
	}

	outcome, err := h.flow.ConfirmAppointment(r.Context(), tenantID, chi.URLParam(r, "token"))
	if err != nil {
		h.logger.Error("appointment confirmation failed", "error", err)
		httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}
	h.respond(w, outcome, "appointment confirmed")
}

// CancelSchedule handles appointment cancellation via token.
// POST /schedules/cancel/{token}
func (h *Handler) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusNotFound, "not found")
		return
	}

	outcome, err := h.flow.CancelAppointment(r.Context(), tenantID, chi.URLParam(r, "token"))
	if err != nil {
		h.logger.Error("appointment cancellation failed", "error", err)
		httputil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}
	h.respond(w, outcome, "appointment cancelled")
}

// respond maps a flow outcome to the small set of user-visible
// responses. Token failures share one message on purpose.
func (h *Handler) respond(w http.ResponseWriter, outcome flow.Outcome, successMessage string) {
	switch outcome {
	case flow.OutcomeSuccess:
		httputil.JSON(w, http.StatusOK, MessageResponse{Message: successMessage})
	case flow.OutcomeSubjectTerminal:
		httputil.Error(w, http.StatusConflict, "this request was already handled")
	case flow.OutcomeSlotConflict:
		httputil.Error(w, http.StatusConflict, "this time slot is no longer available")
	default:
		// MissingToken, MalformedToken, TokenNotFound, TokenExpired,
		// TokenAlreadyConsumed, TenantMismatch, SubjectNotFound.
		httputil.Error(w, http.StatusBadRequest, invalidLinkMessage)
	}
}
