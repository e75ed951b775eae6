// Package email exposes the authenticated endpoint for (re)sending
// account verification links.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/atendo/booking-core/internal/http/middleware"
	"github.com/atendo/booking-core/internal/httputil"
	"github.com/atendo/booking-core/internal/notification"
	"github.com/atendo/booking-core/pkg/domain"
	"github.com/atendo/booking-core/pkg/token"
	"github.com/google/uuid"
)

// UserStore is the user lookup surface the verification endpoint
// needs.
type UserStore interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error)
}

type Handler struct {
	logger       *slog.Logger
	users        UserStore
	tokens       *token.Service
	emailService *notification.EmailService
	links        notification.LinkBuilder
	tokenTTL     time.Duration
}

func NewHandler(
	logger *slog.Logger,
	users UserStore,
	tokens *token.Service,
	emailService *notification.EmailService,
	links notification.LinkBuilder,
	tokenTTL time.Duration,
) *Handler {
	return &Handler{
		logger:       logger,
		users:        users,
		tokens:       tokens,
		emailService: emailService,
		links:        links,
		tokenTTL:     tokenTTL,
	}
}

// SendVerificationRequest addresses the user either by id or by email;
// user_id wins when both are present.
type SendVerificationRequest struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// SendVerification issues a fresh verification token for a user and
// emails the link. Issuing replaces any outstanding link, so only the
// newest one works.
// POST /v1/verification/send
func (h *Handler) SendVerification(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetAuthTenantID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, ok := h.lookupUser(w, r, tenantID, req)
	if !ok {
		return
	}
	if user.EmailVerified {
		httputil.Error(w, http.StatusConflict, "email already verified")
		return
	}

	raw, err := h.tokens.Issue(r.Context(), tenantID, domain.SubjectEmailVerification, user.ID, h.tokenTTL, token.IssueOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Error("failed to issue verification token", "user_id", user.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.emailService != nil {
		// Verification links use the base64url encoding in a query string.
		verifyURL := h.links.VerifyAccount(raw.Base64URL())
		if err := h.emailService.SendVerificationEmail(user.Email, verifyURL, time.Now().Add(h.tokenTTL)); err != nil {
			h.logger.Error("failed to send verification email", "user_id", user.ID, "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to send verification email")
			return
		}
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "verification email sent"})
}

func (h *Handler) lookupUser(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID, req SendVerificationRequest) (*domain.User, bool) {
	var (
		user *domain.User
		err  error
	)
	switch {
	case req.UserID != "":
		var userID uuid.UUID
		userID, err = uuid.Parse(req.UserID)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid user_id")
			return nil, false
		}
		user, err = h.users.FindByID(r.Context(), tenantID, userID)
	case req.Email != "":
		if err := notification.ValidateEmail(req.Email); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid email")
			return nil, false
		}
		user, err = h.users.FindByEmail(r.Context(), tenantID, req.Email)
	default:
		httputil.Error(w, http.StatusBadRequest, "user_id or email required")
		return nil, false
	}

	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return nil, false
		}
		h.logger.Error("failed to load user", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return user, true
}
