// Package schedule implements the appointment lifecycle: interval
// conflict detection, the status state machine, and the scheduling
// service that commits guarded transitions against the store.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

// Store is the persistence boundary for appointments. Mutating
// methods that take a guard must run the conflict re-check and the
// write inside one serializable unit (the SQL store takes a
// per-service advisory lock for the transaction), so a stale
// pre-check snapshot can never let two overlapping appointments both
// commit.
type Store interface {
	// Insert persists a new appointment. When guard is non-empty, the
	// store re-checks the interval against active appointments whose
	// status is in guard within the insert transaction and returns
	// domain.ErrSlotConflict on overlap.
	Insert(ctx context.Context, a *domain.Appointment, guard []domain.AppointmentStatus) error

	// FindByID returns a tenant-scoped appointment, or
	// domain.ErrAppointmentNotFound.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Appointment, error)

	// FindActiveForService returns active (Scheduled or Confirmed)
	// appointments for a service, excluding excludeID when non-nil.
	FindActiveForService(ctx context.Context, tenantID, serviceID uuid.UUID, excludeID uuid.UUID) ([]*domain.Appointment, error)

	// Update persists an already-mutated appointment, with the same
	// guard semantics as Insert (self excluded from the check).
	Update(ctx context.Context, a *domain.Appointment, guard []domain.AppointmentStatus) error

	// ListByPeriod returns appointments whose interval starts inside
	// [from, to), optionally filtered by status.
	ListByPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error)

	// CountByStatus returns per-status appointment counts for a tenant.
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[domain.AppointmentStatus]int, error)

	// CountActive returns the number of active appointments starting
	// at or after from; a nil to leaves the range open-ended.
	CountActive(ctx context.Context, tenantID uuid.UUID, from time.Time, to *time.Time) (int, error)
}

// activeStatuses is the guard used wherever a write creates or moves
// an active interval: any overlapping Scheduled or Confirmed row blocks.
var activeStatuses = []domain.AppointmentStatus{domain.StatusScheduled, domain.StatusConfirmed}

// confirmedOnly is the guard for Scheduled->Confirmed: the slot is
// already held among Scheduled rows, but only one of several
// overlapping Scheduled appointments may reach Confirmed.
var confirmedOnly = []domain.AppointmentStatus{domain.StatusConfirmed}

// Service coordinates appointment creation and lifecycle transitions.
type Service struct {
	store   Store
	machine *StatusMachine
	clock   domain.Clock
	logger  *slog.Logger
}

// NewService creates a scheduling service.
func NewService(store Store, machine *StatusMachine, clock domain.Clock, logger *slog.Logger) *Service {
	return &Service{store: store, machine: machine, clock: clock, logger: logger}
}

// CreateParams describes a new appointment.
type CreateParams struct {
	TenantID  uuid.UUID
	ServiceID uuid.UUID
	StartAt   time.Time
	EndAt     time.Time
	Location  string
}

// Create books a new appointment in Scheduled status. The interval is
// pre-checked against active appointments for a cheap early reject;
// the store repeats the check inside the insert transaction, which is
// the authoritative one.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.Appointment, error) {
	interval, err := NewInterval(p.StartAt, p.EndAt)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindActiveForService(ctx, p.TenantID, p.ServiceID, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load active appointments: %w", err)
	}
	if HasConflict(interval, intervalsOf(existing)) {
		return nil, domain.ErrSlotConflict
	}

	now := s.clock.Now()
	a := &domain.Appointment{
		ID:        uuid.New(),
		TenantID:  p.TenantID,
		ServiceID: p.ServiceID,
		StartAt:   p.StartAt,
		EndAt:     p.EndAt,
		Location:  p.Location,
		Status:    domain.StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, a, activeStatuses); err != nil {
		return nil, err
	}

	s.logger.Info("appointment created",
		"appointment_id", a.ID,
		"tenant_id", a.TenantID,
		"service_id", a.ServiceID,
		"start_at", a.StartAt,
		"end_at", a.EndAt,
	)
	return a, nil
}

// TransitionOpts carries optional data for a transition.
type TransitionOpts struct {
	CancellationReason string
}

// Transition moves an appointment to the target status, enforcing the
// transition table and its guards. Scheduled->Confirmed re-checks the
// interval against other Confirmed appointments inside the store
// transaction, so two overlapping Scheduled appointments can never
// both be confirmed.
func (s *Service) Transition(
	ctx context.Context,
	tenantID, id uuid.UUID,
	target domain.AppointmentStatus,
	actor Actor,
	opts TransitionOpts,
) (*domain.Appointment, error) {
	a, err := s.store.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := s.machine.Apply(a, target, actor); err != nil {
		return nil, err
	}

	if target == domain.StatusCancelled && opts.CancellationReason != "" {
		a.CancellationReason = &opts.CancellationReason
	}

	var guard []domain.AppointmentStatus
	if target == domain.StatusConfirmed {
		guard = confirmedOnly
	}

	if err := s.store.Update(ctx, a, guard); err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed",
		"appointment_id", a.ID,
		"tenant_id", a.TenantID,
		"status", string(a.Status),
		"authenticated", actor.Authenticated,
	)
	return a, nil
}

// Reschedule changes the time window of an active appointment. The
// new interval is always re-checked against all active appointments
// on the same service, excluding the appointment itself, inside the
// same transaction as the write.
func (s *Service) Reschedule(
	ctx context.Context,
	tenantID, id uuid.UUID,
	startAt, endAt time.Time,
	actor Actor,
) (*domain.Appointment, error) {
	if !actor.Authenticated {
		return nil, domain.ErrInvalidTransition
	}

	interval, err := NewInterval(startAt, endAt)
	if err != nil {
		return nil, err
	}

	a, err := s.store.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.Active() {
		return nil, domain.ErrInvalidTransition
	}

	existing, err := s.store.FindActiveForService(ctx, tenantID, a.ServiceID, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active appointments: %w", err)
	}
	if HasConflict(interval, intervalsOf(existing)) {
		return nil, domain.ErrSlotConflict
	}

	a.StartAt = startAt
	a.EndAt = endAt
	a.UpdatedAt = s.clock.Now()

	if err := s.store.Update(ctx, a, activeStatuses); err != nil {
		return nil, err
	}

	s.logger.Info("appointment rescheduled",
		"appointment_id", a.ID,
		"tenant_id", a.TenantID,
		"start_at", a.StartAt,
		"end_at", a.EndAt,
	)
	return a, nil
}

// Get returns a tenant-scoped appointment.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Appointment, error) {
	return s.store.FindByID(ctx, tenantID, id)
}

// ListByPeriod returns appointments starting inside [from, to),
// optionally filtered by status.
func (s *Service) ListByPeriod(
	ctx context.Context,
	tenantID uuid.UUID,
	from, to time.Time,
	statuses []domain.AppointmentStatus,
) ([]*domain.Appointment, error) {
	if !to.After(from) {
		return nil, domain.ErrInvalidInterval
	}
	return s.store.ListByPeriod(ctx, tenantID, from, to, statuses)
}

// Stats summarizes a tenant's appointments for dashboards.
type Stats struct {
	Total    int                              `json:"total"`
	ByStatus map[domain.AppointmentStatus]int `json:"by_status"`
	Upcoming int                              `json:"upcoming"`
	Today    int                              `json:"today"`
}

// Stats returns per-status counts plus upcoming and same-day active
// appointment counts for a tenant.
func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (*Stats, error) {
	counts, err := s.store.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	now := s.clock.Now()
	upcoming, err := s.store.CountActive(ctx, tenantID, now, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming appointments: %w", err)
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)
	today, err := s.store.CountActive(ctx, tenantID, startOfDay, &endOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's appointments: %w", err)
	}

	return &Stats{Total: total, ByStatus: counts, Upcoming: upcoming, Today: today}, nil
}

func intervalsOf(appts []*domain.Appointment) []Interval {
	intervals := make([]Interval, 0, len(appts))
	for _, a := range appts {
		intervals = append(intervals, Interval{Start: a.StartAt, End: a.EndAt})
	}
	return intervals
}
