package repository

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"time"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/atendo/booking-core/pkg/schedule"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const appointmentColumns = `
	id, tenant_id, service_id, start_at, end_at, location, status,
	cancellation_reason, confirmed_at, cancelled_at, completed_at, no_show_at,
	created_at, updated_at
`

// AppointmentsRepository owns the appointments rows.
type AppointmentsRepository struct {
	db *sql.DB
}

// NewAppointmentsRepository creates a new appointments repository.
func NewAppointmentsRepository(db *sql.DB) *AppointmentsRepository {
	return &AppointmentsRepository{db: db}
}

// Insert persists a new appointment. A non-empty guard re-checks the
// interval against the listed statuses inside the insert transaction,
// after taking the per-service advisory lock, so concurrent writers
// serialize on the same service.
func (r *AppointmentsRepository) Insert(ctx context.Context, a *domain.Appointment, guard []domain.AppointmentStatus) error {
	insert := func(q Querier) error {
		query := `
			INSERT INTO appointments
				(id, tenant_id, service_id, start_at, end_at, location, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := q.ExecContext(ctx, query,
			a.ID, a.TenantID, a.ServiceID, a.StartAt, a.EndAt, a.Location, a.Status, a.CreatedAt, a.UpdatedAt,
		)
		return err
	}

	if len(guard) == 0 {
		return insert(r.db)
	}
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.checkConflictLocked(ctx, tx, a, guard); err != nil {
			return err
		}
		return insert(tx)
	})
}

// Update persists an already-mutated appointment, with the same guard
// semantics as Insert; the appointment's own row is excluded from the
// check.
func (r *AppointmentsRepository) Update(ctx context.Context, a *domain.Appointment, guard []domain.AppointmentStatus) error {
	update := func(q Querier) error {
		query := `
			UPDATE appointments
			SET start_at = $1, end_at = $2, location = $3, status = $4,
			    cancellation_reason = $5, confirmed_at = $6, cancelled_at = $7,
			    completed_at = $8, no_show_at = $9, updated_at = $10
			WHERE id = $11 AND tenant_id = $12
		`
		result, err := q.ExecContext(ctx, query,
			a.StartAt, a.EndAt, a.Location, a.Status,
			a.CancellationReason, a.ConfirmedAt, a.CancelledAt,
			a.CompletedAt, a.NoShowAt, a.UpdatedAt,
			a.ID, a.TenantID,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrAppointmentNotFound
		}
		return nil
	}

	if len(guard) == 0 {
		return update(r.db)
	}
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.checkConflictLocked(ctx, tx, a, guard); err != nil {
			return err
		}
		return update(tx)
	})
}

// checkConflictLocked serializes on the (tenant, service) advisory
// lock, then rejects with ErrSlotConflict if any guard-status row
// overlaps the appointment's interval. The lock is transaction-scoped
// and released on commit or rollback; a writer that waited on it reads
// the winner's committed rows, so row-level FOR UPDATE is not enough
// here. Two Scheduled appointments racing to Confirmed lock no common
// row, and neither would see the other's in-flight update.
func (r *AppointmentsRepository) checkConflictLocked(ctx context.Context, tx *sql.Tx, a *domain.Appointment, guard []domain.AppointmentStatus) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, serviceLockKey(a.TenantID, a.ServiceID)); err != nil {
		return err
	}

	query := `
		SELECT start_at, end_at
		FROM appointments
		WHERE tenant_id = $1 AND service_id = $2
		  AND status = ANY($3)
		  AND id <> $4
	`
	rows, err := tx.QueryContext(ctx, query, a.TenantID, a.ServiceID, statusStrings(guard), a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var existing []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return err
		}
		existing = append(existing, iv)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	candidate := schedule.Interval{Start: a.StartAt, End: a.EndAt}
	if schedule.HasConflict(candidate, existing) {
		return domain.ErrSlotConflict
	}
	return nil
}

// serviceLockKey derives the advisory lock key for a (tenant, service)
// pair. Collisions across pairs only over-serialize, never under-lock.
func serviceLockKey(tenantID, serviceID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(tenantID[:])
	h.Write(serviceID[:])
	return int64(h.Sum64())
}

// FindByID retrieves a tenant-scoped appointment.
func (r *AppointmentsRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND tenant_id = $2`
	a, err := scanAppointment(r.db.QueryRowContext(ctx, query, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindActiveForService returns the Scheduled and Confirmed
// appointments for a service. excludeID removes an appointment's own
// row on updates; uuid.Nil excludes nothing.
func (r *AppointmentsRepository) FindActiveForService(ctx context.Context, tenantID, serviceID uuid.UUID, excludeID uuid.UUID) ([]*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND service_id = $2
		  AND status = ANY($3)
		  AND id <> $4
		ORDER BY start_at
	`
	active := statusStrings([]domain.AppointmentStatus{domain.StatusScheduled, domain.StatusConfirmed})
	rows, err := r.db.QueryContext(ctx, query, tenantID, serviceID, active, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListByPeriod returns appointments starting inside [from, to),
// optionally filtered by status.
func (r *AppointmentsRepository) ListByPeriod(ctx context.Context, tenantID uuid.UUID, from, to time.Time, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND start_at >= $2 AND start_at < $3
		  AND (cardinality($4::text[]) = 0 OR status = ANY($4))
		ORDER BY start_at
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, from, to, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// CountByStatus returns per-status appointment counts for a tenant.
func (r *AppointmentsRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[domain.AppointmentStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM appointments
		WHERE tenant_id = $1
		GROUP BY status
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.AppointmentStatus]int)
	for rows.Next() {
		var status domain.AppointmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountActive returns the number of Scheduled or Confirmed
// appointments starting at or after from; a nil to leaves the range
// open-ended.
func (r *AppointmentsRepository) CountActive(ctx context.Context, tenantID uuid.UUID, from time.Time, to *time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE tenant_id = $1 AND status = ANY($2)
		  AND start_at >= $3
		  AND ($4::timestamptz IS NULL OR start_at < $4)
	`
	active := statusStrings([]domain.AppointmentStatus{domain.StatusScheduled, domain.StatusConfirmed})
	var n int
	if err := r.db.QueryRowContext(ctx, query, tenantID, active, from, to).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func statusStrings(statuses []domain.AppointmentStatus) pq.StringArray {
	out := make(pq.StringArray, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	a := &domain.Appointment{}
	err := row.Scan(
		&a.ID, &a.TenantID, &a.ServiceID, &a.StartAt, &a.EndAt, &a.Location, &a.Status,
		&a.CancellationReason, &a.ConfirmedAt, &a.CancelledAt, &a.CompletedAt, &a.NoShowAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	var appts []*domain.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}
