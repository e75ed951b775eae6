// Package schedules exposes the authenticated scheduling API used by
// staff: booking, rescheduling, and lifecycle transitions.
package schedules

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/atendo/booking-core/internal/http/middleware"
	"github.com/atendo/booking-core/internal/httputil"
	"github.com/atendo/booking-core/internal/notification"
	"github.com/atendo/booking-core/pkg/domain"
	"github.com/atendo/booking-core/pkg/schedule"
	"github.com/atendo/booking-core/pkg/token"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Mailer is the notification surface the scheduling API uses; nil
// when SMTP is not configured.
type Mailer interface {
	SendAppointmentEmail(to string, startAt time.Time, location, confirmURL, cancelURL string, expiresAt time.Time) error
	SendCancellationEmail(to string, startAt time.Time) error
}

type Handler struct {
	logger    *slog.Logger
	schedules *schedule.Service
	tokens    *token.Service
	mailer    Mailer
	links     notification.LinkBuilder
	tokenTTL  time.Duration
}

func NewHandler(
	logger *slog.Logger,
	schedules *schedule.Service,
	tokens *token.Service,
	mailer Mailer,
	links notification.LinkBuilder,
	tokenTTL time.Duration,
) *Handler {
	return &Handler{
		logger:    logger,
		schedules: schedules,
		tokens:    tokens,
		mailer:    mailer,
		links:     links,
		tokenTTL:  tokenTTL,
	}
}

type CreateRequest struct {
	ServiceID   string    `json:"service_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Location    string    `json:"location"`
	NotifyEmail string    `json:"notify_email,omitempty"`
}

type RescheduleRequest struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type CancelRequest struct {
	Reason      string `json:"reason,omitempty"`
	NotifyEmail string `json:"notify_email,omitempty"`
}

type AppointmentResponse struct {
	ID        string     `json:"id"`
	ServiceID string     `json:"service_id"`
	StartAt   time.Time  `json:"start_at"`
	EndAt     time.Time  `json:"end_at"`
	Location  string     `json:"location"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Confirmed *time.Time `json:"confirmed_at,omitempty"`
	Cancelled *time.Time `json:"cancelled_at,omitempty"`
}

func toResponse(a *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID.String(),
		ServiceID: a.ServiceID.String(),
		StartAt:   a.StartAt,
		EndAt:     a.EndAt,
		Location:  a.Location,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		Confirmed: a.ConfirmedAt,
		Cancelled: a.CancelledAt,
	}
}

// Create books an appointment, issues its confirmation and
// cancellation tokens, and emails the links when a recipient is given.
// POST /v1/schedules
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid service_id")
		return
	}
	if req.NotifyEmail != "" {
		if err := notification.ValidateEmail(req.NotifyEmail); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid notify_email")
			return
		}
	}

	a, err := h.schedules.Create(r.Context(), schedule.CreateParams{
		TenantID:  tenantID,
		ServiceID: serviceID,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		Location:  httputil.SanitizeText(req.Location),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.issueAndNotify(r, tenantID, a, req.NotifyEmail)

	httputil.JSON(w, http.StatusCreated, toResponse(a))
}

// issueAndNotify creates the confirm/cancel token pair for a new
// appointment and mails the links. Failure here never fails the
// booking; the links can be re-sent.
func (h *Handler) issueAndNotify(r *http.Request, tenantID uuid.UUID, a *domain.Appointment, notifyEmail string) {
	opts := token.IssueOpts{IP: r.RemoteAddr, UserAgent: r.UserAgent()}

	confirmRaw, err := h.tokens.Issue(r.Context(), tenantID, domain.SubjectAppointmentConfirmation, a.ID, h.tokenTTL, opts)
	if err != nil {
		h.logger.Error("failed to issue confirmation token", "appointment_id", a.ID, "error", err)
		return
	}
	cancelRaw, err := h.tokens.Issue(r.Context(), tenantID, domain.SubjectAppointmentCancellation, a.ID, h.tokenTTL, opts)
	if err != nil {
		h.logger.Error("failed to issue cancellation token", "appointment_id", a.ID, "error", err)
		return
	}

	if notifyEmail == "" || h.mailer == nil {
		return
	}
	err = h.mailer.SendAppointmentEmail(
		notifyEmail,
		a.StartAt,
		a.Location,
		h.links.ConfirmSchedule(confirmRaw.Hex()),
		h.links.CancelSchedule(cancelRaw.Hex()),
		time.Now().Add(h.tokenTTL),
	)
	if err != nil {
		h.logger.Error("failed to send appointment email", "appointment_id", a.ID, "error", err)
	}
}

// Get returns one appointment.
// GET /v1/schedules/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	a, err := h.schedules.Get(r.Context(), tenantID, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(a))
}

// List returns appointments starting inside [from, to).
// GET /v1/schedules?from=...&to=...&status=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := h.identity(w, r)
	if !ok {
		return
	}

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid from")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid to")
		return
	}

	var statuses []domain.AppointmentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.AppointmentStatus(s)
		if !status.Known() {
			httputil.Error(w, http.StatusBadRequest, "invalid status")
			return
		}
		statuses = append(statuses, status)
	}

	appts, err := h.schedules.ListByPeriod(r.Context(), tenantID, from, to, statuses)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toResponse(a))
	}
	httputil.JSON(w, http.StatusOK, out)
}

// Stats returns per-status appointment counts for dashboards.
// GET /v1/schedules/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	stats, err := h.schedules.Stats(r.Context(), tenantID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// Reschedule moves an active appointment to a new time window.
// PATCH /v1/schedules/{id}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	a, err := h.schedules.Reschedule(r.Context(), tenantID, id, req.StartAt, req.EndAt, actor)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(a))
}

// Confirm marks an appointment confirmed by staff.
// POST /v1/schedules/{id}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.StatusConfirmed, schedule.TransitionOpts{})
}

// Cancel cancels an appointment by staff, with an optional reason and
// an optional notification recipient.
// POST /v1/schedules/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req CancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.NotifyEmail != "" {
		if err := notification.ValidateEmail(req.NotifyEmail); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid notify_email")
			return
		}
	}

	a, err := h.schedules.Transition(r.Context(), tenantID, id, domain.StatusCancelled, actor, schedule.TransitionOpts{
		CancellationReason: httputil.SanitizeText(req.Reason),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	// The notice is best-effort; the cancellation already committed.
	if req.NotifyEmail != "" && h.mailer != nil {
		if err := h.mailer.SendCancellationEmail(req.NotifyEmail, a.StartAt); err != nil {
			h.logger.Error("failed to send cancellation email", "appointment_id", a.ID, "error", err)
		}
	}

	httputil.JSON(w, http.StatusOK, toResponse(a))
}

// Complete marks a past appointment completed.
// POST /v1/schedules/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.StatusCompleted, schedule.TransitionOpts{})
}

// NoShow marks a started appointment as a no-show.
// POST /v1/schedules/{id}/no-show
func (h *Handler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.StatusNoShow, schedule.TransitionOpts{})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target domain.AppointmentStatus, opts schedule.TransitionOpts) {
	tenantID, actor, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	a, err := h.schedules.Transition(r.Context(), tenantID, id, target, actor, opts)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(a))
}

// identity pulls the authenticated actor and tenant scope out of the
// request context.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (uuid.UUID, schedule.Actor, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, schedule.Actor{}, false
	}
	tenantID, ok := middleware.GetAuthTenantID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, schedule.Actor{}, false
	}
	return tenantID, schedule.StaffActor(userID), true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInterval):
		httputil.Error(w, http.StatusBadRequest, "end must be after start")
	case errors.Is(err, domain.ErrAppointmentNotFound):
		httputil.Error(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, domain.ErrSlotConflict):
		httputil.Error(w, http.StatusConflict, "time slot conflicts with an existing appointment")
	case errors.Is(err, domain.ErrInvalidTransition):
		httputil.Error(w, http.StatusConflict, "appointment cannot change to that status")
	default:
		h.logger.Error("schedule operation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
