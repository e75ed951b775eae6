// Package flow orchestrates token consumption with the corresponding
// subject state change for the public confirm/cancel/verify endpoints.
// It is the only component that talks to both the token protocol and
// the scheduling lifecycle at once, and holds no state of its own.
package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/atendo/booking-core/pkg/schedule"
	"github.com/atendo/booking-core/pkg/token"
	"github.com/google/uuid"
)

// Outcome is the closed set of results surfaced to UI-facing
// collaborators. The mapping to user-visible messages deliberately
// collapses several kinds into one "invalid or expired" message to
// avoid enumeration of token existence.
type Outcome string

const (
	OutcomeSuccess              Outcome = "success"
	OutcomeMissingToken         Outcome = "missing_token"
	OutcomeMalformedToken       Outcome = "malformed_token"
	OutcomeTokenNotFound        Outcome = "token_not_found"
	OutcomeTokenExpired         Outcome = "token_expired"
	OutcomeTokenAlreadyConsumed Outcome = "token_already_consumed"
	OutcomeTenantMismatch       Outcome = "tenant_mismatch"
	OutcomeSubjectNotFound      Outcome = "subject_not_found"
	OutcomeSubjectTerminal      Outcome = "subject_inactive_or_terminal"
	OutcomeSlotConflict         Outcome = "slot_conflict"
)

// UserStore is the narrow seam to the user records this flow mutates.
type UserStore interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error)
	// MarkVerified flips email_verified and active in one write.
	MarkVerified(ctx context.Context, tenantID, id uuid.UUID) error
}

// Controller wires the token service to the scheduling lifecycle and
// the user records for the three public flows.
type Controller struct {
	tokens    *token.Service
	schedules *schedule.Service
	users     UserStore
	logger    *slog.Logger
}

// NewController creates a confirmation flow controller.
func NewController(tokens *token.Service, schedules *schedule.Service, users UserStore, logger *slog.Logger) *Controller {
	return &Controller{tokens: tokens, schedules: schedules, users: users, logger: logger}
}

// ConfirmAppointment consumes an appointment-confirmation token and
// moves the appointment to Confirmed. If the transition fails after
// the token was consumed, the token stays spent: a one-shot credential
// is never reissued because its target was already handled.
func (c *Controller) ConfirmAppointment(ctx context.Context, tenantID uuid.UUID, rawToken string) (Outcome, error) {
	return c.applyAppointment(ctx, tenantID, rawToken, domain.SubjectAppointmentConfirmation, domain.StatusConfirmed)
}

// CancelAppointment consumes an appointment-cancellation token and
// moves the appointment to Cancelled.
func (c *Controller) CancelAppointment(ctx context.Context, tenantID uuid.UUID, rawToken string) (Outcome, error) {
	return c.applyAppointment(ctx, tenantID, rawToken, domain.SubjectAppointmentCancellation, domain.StatusCancelled)
}

func (c *Controller) applyAppointment(
	ctx context.Context,
	tenantID uuid.UUID,
	rawToken string,
	subjectType domain.SubjectType,
	target domain.AppointmentStatus,
) (Outcome, error) {
	t, outcome, err := c.consume(ctx, tenantID, rawToken, subjectType)
	if outcome != OutcomeSuccess {
		return outcome, err
	}

	_, err = c.schedules.Transition(ctx, tenantID, t.SubjectID, target, schedule.TokenActor(), schedule.TransitionOpts{})
	if err != nil {
		outcome := mapTransitionErr(err)
		if outcome == "" {
			return "", err
		}
		c.logger.Info("token consumed but transition rejected",
			"tenant_id", tenantID,
			"appointment_id", t.SubjectID,
			"target", string(target),
			"outcome", string(outcome),
		)
		return outcome, nil
	}

	c.logger.Info("appointment transition via token",
		"tenant_id", tenantID,
		"appointment_id", t.SubjectID,
		"target", string(target),
	)
	return OutcomeSuccess, nil
}

// VerifyEmail consumes an email-verification token, marks the user
// verified and active, and deletes the token row. The row has no
// further use once verification succeeds, so unlike the appointment
// flows it is removed rather than kept consumed for audit.
func (c *Controller) VerifyEmail(ctx context.Context, tenantID uuid.UUID, rawToken string) (Outcome, error) {
	t, outcome, err := c.consume(ctx, tenantID, rawToken, domain.SubjectEmailVerification)
	if outcome != OutcomeSuccess {
		return outcome, err
	}

	if err := c.users.MarkVerified(ctx, tenantID, t.SubjectID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return OutcomeSubjectNotFound, nil
		}
		return "", err
	}

	if err := c.tokens.Delete(ctx, t.ID); err != nil {
		// Verification already committed; a leftover consumed row is
		// harmless and the sweeper will not touch it, so log and move on.
		c.logger.Warn("failed to delete verification token after use",
			"tenant_id", tenantID,
			"token_id", t.ID,
			"error", err,
		)
	}

	c.logger.Info("email verified", "tenant_id", tenantID, "user_id", t.SubjectID)
	return OutcomeSuccess, nil
}

// consume validates the token's shape and subject type, then spends
// it. The subject-type check runs before consumption so a token
// presented on the wrong endpoint is not burned.
func (c *Controller) consume(
	ctx context.Context,
	tenantID uuid.UUID,
	rawToken string,
	subjectType domain.SubjectType,
) (*domain.ConfirmationToken, Outcome, error) {
	if rawToken == "" {
		return nil, OutcomeMissingToken, nil
	}

	t, err := c.tokens.Validate(ctx, tenantID, rawToken)
	if err != nil {
		outcome := mapTokenErr(err)
		if outcome == "" {
			return nil, "", err
		}
		return nil, outcome, nil
	}
	if t.SubjectType != subjectType {
		return nil, OutcomeTokenNotFound, nil
	}

	t, err = c.tokens.Consume(ctx, tenantID, rawToken)
	if err != nil {
		outcome := mapTokenErr(err)
		if outcome == "" {
			return nil, "", err
		}
		return nil, outcome, nil
	}
	return t, OutcomeSuccess, nil
}

// mapTokenErr translates token service errors into outcomes. An empty
// outcome means the error is infrastructural and should propagate.
func mapTokenErr(err error) Outcome {
	switch {
	case errors.Is(err, domain.ErrTokenMalformed):
		return OutcomeMalformedToken
	case errors.Is(err, domain.ErrTokenNotFound):
		return OutcomeTokenNotFound
	case errors.Is(err, domain.ErrTokenExpired):
		return OutcomeTokenExpired
	case errors.Is(err, domain.ErrTokenConsumed):
		return OutcomeTokenAlreadyConsumed
	case errors.Is(err, domain.ErrTenantMismatch):
		return OutcomeTenantMismatch
	default:
		return ""
	}
}

func mapTransitionErr(err error) Outcome {
	switch {
	case errors.Is(err, domain.ErrAppointmentNotFound):
		return OutcomeSubjectNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return OutcomeSubjectTerminal
	case errors.Is(err, domain.ErrSlotConflict):
		return OutcomeSlotConflict
	default:
		return ""
	}
}
