package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

// ConfirmationTokensRepository owns the confirmation_tokens rows; no
// other component writes them.
type ConfirmationTokensRepository struct {
	db *sql.DB
}

// NewConfirmationTokensRepository creates a new confirmation tokens repository.
func NewConfirmationTokensRepository(db *sql.DB) *ConfirmationTokensRepository {
	return &ConfirmationTokensRepository{db: db}
}

// ReplaceOutstanding revokes any outstanding token for the same
// subject and inserts the new one, in one transaction, so at most one
// unconsumed token exists per (subject type, subject) at a time.
func (r *ConfirmationTokensRepository) ReplaceOutstanding(ctx context.Context, t *domain.ConfirmationToken) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		revoke := `
			UPDATE confirmation_tokens
			SET consumed_at = $1
			WHERE tenant_id = $2 AND subject_type = $3 AND subject_id = $4
			  AND consumed_at IS NULL
		`
		if _, err := tx.ExecContext(ctx, revoke, t.IssuedAt, t.TenantID, t.SubjectType, t.SubjectID); err != nil {
			return err
		}

		insert := `
			INSERT INTO confirmation_tokens
				(id, tenant_id, subject_type, subject_id, token_hash, issued_at, expires_at, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, insert,
			t.ID, t.TenantID, t.SubjectType, t.SubjectID,
			t.TokenHash, t.IssuedAt, t.ExpiresAt, t.Metadata,
		)
		return err
	})
}

// FindByHash retrieves a token by its stored hash. Tenant scoping is
// applied by the token service so mismatches can be audited.
func (r *ConfirmationTokensRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.ConfirmationToken, error) {
	query := `
		SELECT id, tenant_id, subject_type, subject_id, token_hash, issued_at, expires_at, consumed_at, metadata
		FROM confirmation_tokens
		WHERE token_hash = $1
	`
	t := &domain.ConfirmationToken{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&t.ID, &t.TenantID, &t.SubjectType, &t.SubjectID,
		&t.TokenHash, &t.IssuedAt, &t.ExpiresAt, &t.ConsumedAt, &t.Metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ConsumeAtomic spends the token as a single conditional update. Two
// requests racing on the same value see exactly one true result.
func (r *ConfirmationTokensRepository) ConsumeAtomic(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	query := `
		UPDATE confirmation_tokens
		SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, tokenHash, at)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Delete removes a token row.
func (r *ConfirmationTokensRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM confirmation_tokens WHERE id = $1`, id)
	return err
}

// DeleteExpired batch-deletes unconsumed tokens that expired before
// the cutoff and returns the number removed.
func (r *ConfirmationTokensRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM confirmation_tokens
		WHERE expires_at < $1 AND consumed_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
