package schedule

import (
	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

// Actor describes who is driving a status transition. Token-driven
// transitions (public confirm/cancel links) are unauthenticated;
// staff actions carry the authenticated user.
type Actor struct {
	Authenticated bool
	UserID        uuid.UUID
}

// TokenActor is the actor for transitions driven by token consumption.
func TokenActor() Actor {
	return Actor{}
}

// StaffActor is the actor for authenticated staff actions.
func StaffActor(userID uuid.UUID) Actor {
	return Actor{Authenticated: true, UserID: userID}
}

// transitions is the closed table of legal status moves. Anything not
// listed is rejected; terminal states have no outgoing edges.
var transitions = map[domain.AppointmentStatus]map[domain.AppointmentStatus]bool{
	domain.StatusScheduled: {
		domain.StatusConfirmed: true,
		domain.StatusCancelled: true,
		domain.StatusCompleted: true,
		domain.StatusNoShow:    true,
	},
	domain.StatusConfirmed: {
		domain.StatusCancelled: true,
		domain.StatusCompleted: true,
		domain.StatusNoShow:    true,
	},
}

// StatusMachine validates and applies appointment status transitions.
type StatusMachine struct {
	clock domain.Clock
}

// NewStatusMachine creates a status machine using the given clock for
// its time guards.
func NewStatusMachine(clock domain.Clock) *StatusMachine {
	return &StatusMachine{clock: clock}
}

// CanTransition reports whether the table permits the move, ignoring
// guards.
func (m *StatusMachine) CanTransition(from, to domain.AppointmentStatus) bool {
	return transitions[from][to]
}

// Apply mutates the appointment to the target status after checking
// the transition table and its guards. Completed requires an
// authenticated actor and that the appointment has ended; NoShow
// requires an authenticated actor and that it has started. The caller
// is responsible for persisting the change, including the conflict
// re-check for transitions that create or restore an active interval.
func (m *StatusMachine) Apply(a *domain.Appointment, target domain.AppointmentStatus, actor Actor) error {
	if !target.Known() {
		return domain.ErrInvalidTransition
	}
	if !m.CanTransition(a.Status, target) {
		return domain.ErrInvalidTransition
	}

	now := m.clock.Now()
	switch target {
	case domain.StatusCompleted:
		if !actor.Authenticated || now.Before(a.EndAt) {
			return domain.ErrInvalidTransition
		}
		a.CompletedAt = &now
	case domain.StatusNoShow:
		if !actor.Authenticated || now.Before(a.StartAt) {
			return domain.ErrInvalidTransition
		}
		a.NoShowAt = &now
	case domain.StatusConfirmed:
		a.ConfirmedAt = &now
	case domain.StatusCancelled:
		a.CancelledAt = &now
	}

	a.Status = target
	a.UpdatedAt = now
	return nil
}
