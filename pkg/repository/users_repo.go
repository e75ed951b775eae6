package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

// UsersRepository handles user persistence. This core only reads users
// and flips their verification state; account management lives
// elsewhere.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// FindByID retrieves a tenant-scoped user.
func (r *UsersRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, tenant_id, email, name, email_verified, active, created_at, updated_at, deleted_at
		FROM users
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, tenantID))
}

// FindByEmail retrieves a tenant-scoped user by email.
func (r *UsersRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error) {
	query := `
		SELECT id, tenant_id, email, name, email_verified, active, created_at, updated_at, deleted_at
		FROM users
		WHERE email = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email, tenantID))
}

// MarkVerified flips email_verified and active in one write.
func (r *UsersRepository) MarkVerified(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = true, active = true, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UsersRepository) scanOne(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.TenantID, &user.Email, &user.Name,
		&user.EmailVerified, &user.Active, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
