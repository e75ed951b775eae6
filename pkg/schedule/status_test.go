package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

func fixedClock(now time.Time) domain.Clock {
	return domain.ClockFunc(func() time.Time { return now })
}

func newAppointment(status domain.AppointmentStatus, start, end time.Time) *domain.Appointment {
	return &domain.Appointment{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		ServiceID: uuid.New(),
		StartAt:   start,
		EndAt:     end,
		Status:    status,
	}
}

func TestCanTransition(t *testing.T) {
	m := NewStatusMachine(fixedClock(base))

	allowed := map[domain.AppointmentStatus][]domain.AppointmentStatus{
		domain.StatusScheduled: {domain.StatusConfirmed, domain.StatusCancelled, domain.StatusCompleted, domain.StatusNoShow},
		domain.StatusConfirmed: {domain.StatusCancelled, domain.StatusCompleted, domain.StatusNoShow},
	}
	all := []domain.AppointmentStatus{
		domain.StatusScheduled, domain.StatusConfirmed, domain.StatusCancelled,
		domain.StatusCompleted, domain.StatusNoShow,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := m.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestApplyTerminalStatesAreClosed(t *testing.T) {
	m := NewStatusMachine(fixedClock(at(240)))
	targets := []domain.AppointmentStatus{
		domain.StatusScheduled, domain.StatusConfirmed, domain.StatusCancelled,
		domain.StatusCompleted, domain.StatusNoShow,
	}

	for _, from := range []domain.AppointmentStatus{domain.StatusCancelled, domain.StatusCompleted, domain.StatusNoShow} {
		for _, to := range targets {
			a := newAppointment(from, at(0), at(60))
			if err := m.Apply(a, to, StaffActor(uuid.New())); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("Apply(%s -> %s) = %v, want ErrInvalidTransition", from, to, err)
			}
			if a.Status != from {
				t.Errorf("status mutated on rejected transition: %s", a.Status)
			}
		}
	}
}

func TestApplyCompletedGuards(t *testing.T) {
	staff := StaffActor(uuid.New())

	tests := []struct {
		name    string
		now     time.Time
		actor   Actor
		wantErr bool
	}{
		{"staff after end", at(61), staff, false},
		{"staff exactly at end", at(60), staff, false},
		{"staff before end", at(59), staff, true},
		{"token actor after end", at(61), TokenActor(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStatusMachine(fixedClock(tt.now))
			a := newAppointment(domain.StatusConfirmed, at(0), at(60))
			err := m.Apply(a, domain.StatusCompleted, tt.actor)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Status != domain.StatusCompleted {
				t.Errorf("status = %s, want completed", a.Status)
			}
			if a.CompletedAt == nil || !a.CompletedAt.Equal(tt.now) {
				t.Errorf("CompletedAt = %v, want %v", a.CompletedAt, tt.now)
			}
		})
	}
}

func TestApplyNoShowGuards(t *testing.T) {
	staff := StaffActor(uuid.New())

	tests := []struct {
		name    string
		now     time.Time
		actor   Actor
		wantErr bool
	}{
		{"staff after start", at(1), staff, false},
		{"staff exactly at start", at(0), staff, false},
		{"staff before start", at(-1), staff, true},
		{"token actor after start", at(1), TokenActor(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStatusMachine(fixedClock(tt.now))
			a := newAppointment(domain.StatusScheduled, at(0), at(60))
			err := m.Apply(a, domain.StatusNoShow, tt.actor)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.NoShowAt == nil || !a.NoShowAt.Equal(tt.now) {
				t.Errorf("NoShowAt = %v, want %v", a.NoShowAt, tt.now)
			}
		})
	}
}

func TestApplyTokenActorConfirmAndCancel(t *testing.T) {
	// Confirm and cancel carry no authentication guard: the token is
	// the credential.
	now := at(30)
	m := NewStatusMachine(fixedClock(now))

	a := newAppointment(domain.StatusScheduled, at(0), at(60))
	if err := m.Apply(a, domain.StatusConfirmed, TokenActor()); err != nil {
		t.Fatalf("confirm via token: %v", err)
	}
	if a.ConfirmedAt == nil || !a.ConfirmedAt.Equal(now) {
		t.Errorf("ConfirmedAt = %v, want %v", a.ConfirmedAt, now)
	}

	if err := m.Apply(a, domain.StatusCancelled, TokenActor()); err != nil {
		t.Fatalf("cancel via token: %v", err)
	}
	if a.CancelledAt == nil {
		t.Error("CancelledAt not set")
	}
	if a.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want cancelled", a.Status)
	}
}

func TestApplyUnknownStatus(t *testing.T) {
	m := NewStatusMachine(fixedClock(base))
	a := newAppointment(domain.StatusScheduled, at(0), at(60))
	if err := m.Apply(a, domain.AppointmentStatus("archived"), StaffActor(uuid.New())); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for unknown status, got %v", err)
	}
}
