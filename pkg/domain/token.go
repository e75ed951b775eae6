package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubjectType tags what a confirmation token authorizes acting upon.
type SubjectType string

const (
	SubjectEmailVerification       SubjectType = "email_verification"
	SubjectAppointmentConfirmation SubjectType = "appointment_confirmation"
	SubjectAppointmentCancellation SubjectType = "appointment_cancellation"
	SubjectPasswordReset           SubjectType = "password_reset"
)

// ConfirmationToken is a single-use credential gating an otherwise
// unauthenticated state transition. Only the SHA-256 hash of the raw
// value is stored; the raw value exists only in the link sent out.
type ConfirmationToken struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SubjectType SubjectType
	SubjectID   uuid.UUID
	TokenHash   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	ConsumedAt  *time.Time
	Metadata    []byte
}

// Consumed reports whether the token has already been spent.
func (t *ConfirmationToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Expired reports whether the token is past its expiry at the given time.
func (t *ConfirmationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Valid reports whether the token is unconsumed and unexpired at the given time.
func (t *ConfirmationToken) Valid(now time.Time) bool {
	return !t.Consumed() && !t.Expired(now)
}
