package domain

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the closed set of appointment lifecycle states.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Active reports whether the status occupies its time slot for
// conflict-checking purposes.
func (s AppointmentStatus) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// Terminal reports whether the status permits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// Known reports whether s is one of the defined statuses.
func (s AppointmentStatus) Known() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Appointment is a booked time slot for a service within a tenant.
// EndAt is exclusive, so back-to-back appointments do not conflict.
type Appointment struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	ServiceID uuid.UUID
	StartAt   time.Time
	EndAt     time.Time
	Location  string
	Status    AppointmentStatus

	CancellationReason *string
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	NoShowAt           *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
