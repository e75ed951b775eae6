// Package token implements the secure confirmation-token protocol:
// issuance, validation, single-use consumption, and expiry sweeping.
// A token can be consumed at most once, never leaks across tenants,
// and is inert the moment it expires.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atendo/booking-core/pkg/audit"
	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

// Store is the persistence boundary for confirmation tokens. The
// implementation owns the rows exclusively; no other component writes
// them.
type Store interface {
	// ReplaceOutstanding atomically revokes any unconsumed, unexpired
	// token for the same (tenant, subject type, subject) and inserts
	// the new one, so at most one link is ever live per subject.
	ReplaceOutstanding(ctx context.Context, t *domain.ConfirmationToken) error

	// FindByHash returns the token with the given hash regardless of
	// tenant; tenant scoping is enforced by the service so a mismatch
	// can be audited distinctly. Returns domain.ErrTokenNotFound when
	// no row matches.
	FindByHash(ctx context.Context, tokenHash string) (*domain.ConfirmationToken, error)

	// ConsumeAtomic sets consumed_at on the token with the given hash
	// if and only if it is not yet consumed, as a single conditional
	// write. Reports whether this call won the write.
	ConsumeAtomic(ctx context.Context, tokenHash string, at time.Time) (bool, error)

	// Delete removes a token row outright.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired batch-deletes unconsumed tokens that expired
	// before the cutoff and returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// IssueOpts carries request metadata stored alongside the token for
// the audit trail.
type IssueOpts struct {
	IP        string
	UserAgent string
}

// Service issues and consumes confirmation tokens.
type Service struct {
	store Store
	clock domain.Clock
	audit audit.Sink
}

// NewService creates a token service.
func NewService(store Store, clock domain.Clock, sink audit.Sink) *Service {
	return &Service{store: store, clock: clock, audit: sink}
}

// Issue generates a new token bound to a subject and tenant, replacing
// any outstanding token for the same subject. It returns the raw,
// unencoded value; the caller picks the link-safe encoding.
func (s *Service) Issue(
	ctx context.Context,
	tenantID uuid.UUID,
	subjectType domain.SubjectType,
	subjectID uuid.UUID,
	ttl time.Duration,
	opts IssueOpts,
) (Raw, error) {
	raw, err := Generate()
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]string{
		"ip":         opts.IP,
		"user_agent": opts.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := s.clock.Now()
	t := &domain.ConfirmationToken{
		ID:          uuid.New(),
		TenantID:    tenantID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		TokenHash:   Hash(raw),
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
		Metadata:    metadata,
	}

	if err := s.store.ReplaceOutstanding(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:      audit.ActionTokenIssued,
		TenantID:    tenantID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		At:          now,
	})
	return raw, nil
}

// Validate checks an encoded token without consuming it. Malformed
// input is rejected before any store access. Expired rows are deleted
// opportunistically.
func (s *Service) Validate(ctx context.Context, tenantID uuid.UUID, encoded string) (*domain.ConfirmationToken, error) {
	t, err := s.lookup(ctx, tenantID, encoded)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Action:      audit.ActionTokenValidated,
		TenantID:    t.TenantID,
		SubjectType: t.SubjectType,
		SubjectID:   t.SubjectID,
		At:          s.clock.Now(),
	})
	return t, nil
}

// Consume validates and spends a token in one operation. The write is
// a single conditional update, so two requests racing on the same
// value see exactly one success and one ErrTokenConsumed.
func (s *Service) Consume(ctx context.Context, tenantID uuid.UUID, encoded string) (*domain.ConfirmationToken, error) {
	t, err := s.lookup(ctx, tenantID, encoded)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	won, err := s.store.ConsumeAtomic(ctx, t.TokenHash, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if !won {
		// A concurrent request spent it between lookup and write.
		s.recordFailure(ctx, audit.ActionTokenReplayed, t.TenantID, t.SubjectType, t.SubjectID, encoded)
		return nil, domain.ErrTokenConsumed
	}

	t.ConsumedAt = &now
	s.audit.Record(ctx, audit.Event{
		Action:      audit.ActionTokenConsumed,
		TenantID:    t.TenantID,
		SubjectType: t.SubjectType,
		SubjectID:   t.SubjectID,
		At:          now,
	})
	return t, nil
}

// Delete removes a token row outright. Used by flows whose token has
// no further purpose once spent (email verification).
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// Sweep batch-deletes expired, unconsumed tokens older than the
// cutoff. Invoked by an external scheduler.
func (s *Service) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := s.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep tokens: %w", err)
	}
	if count > 0 {
		s.audit.Record(ctx, audit.Event{
			Action: audit.ActionTokensSwept,
			Detail: fmt.Sprintf("deleted %d expired tokens", count),
			At:     s.clock.Now(),
		})
	}
	return count, nil
}

// lookup normalizes the encoded value, fetches the row, and applies
// the tenant, expiry, and consumption checks shared by Validate and
// Consume.
func (s *Service) lookup(ctx context.Context, tenantID uuid.UUID, encoded string) (*domain.ConfirmationToken, error) {
	raw, err := Decode(encoded)
	if err != nil {
		s.recordFailure(ctx, audit.ActionTokenMalformed, tenantID, "", uuid.Nil, encoded)
		return nil, err
	}

	t, err := s.store.FindByHash(ctx, Hash(raw))
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			s.recordFailure(ctx, audit.ActionTokenNotFound, tenantID, "", uuid.Nil, encoded)
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	// A token whose subject belongs to another tenant is invalid even
	// when the value matches. Audited distinctly, surfaced as not
	// found so existence cannot be probed.
	if t.TenantID != tenantID {
		s.recordFailure(ctx, audit.ActionTenantMismatch, tenantID, t.SubjectType, t.SubjectID, encoded)
		return nil, domain.ErrTokenNotFound
	}

	if t.Expired(s.clock.Now()) {
		_ = s.store.Delete(ctx, t.ID)
		s.recordFailure(ctx, audit.ActionTokenExpired, t.TenantID, t.SubjectType, t.SubjectID, encoded)
		return nil, domain.ErrTokenExpired
	}

	if t.Consumed() {
		s.recordFailure(ctx, audit.ActionTokenReplayed, t.TenantID, t.SubjectType, t.SubjectID, encoded)
		return nil, domain.ErrTokenConsumed
	}

	return t, nil
}

func (s *Service) recordFailure(
	ctx context.Context,
	action audit.Action,
	tenantID uuid.UUID,
	subjectType domain.SubjectType,
	subjectID uuid.UUID,
	encoded string,
) {
	s.audit.Record(ctx, audit.Event{
		Action:      action,
		TenantID:    tenantID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		TokenPrefix: prefix(encoded),
		At:          s.clock.Now(),
	})
}
