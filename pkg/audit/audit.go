// Package audit emits structured security events for the confirmation
// token protocol. These events are the only forensic trail for token
// misuse, so every terminal outcome is recorded.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/atendo/booking-core/pkg/domain"
	"github.com/google/uuid"
)

// Action identifies the terminal outcome being recorded.
type Action string

const (
	ActionTokenIssued      Action = "token_issued"
	ActionTokenValidated   Action = "token_validated"
	ActionTokenConsumed    Action = "token_consumed"
	ActionTokenExpired     Action = "token_expired"
	ActionTokenReplayed    Action = "token_replayed"
	ActionTokenNotFound    Action = "token_not_found"
	ActionTokenMalformed   Action = "token_malformed"
	ActionTenantMismatch   Action = "tenant_mismatch"
	ActionTokensSwept      Action = "tokens_swept"
	ActionStatusTransition Action = "status_transition"
)

// Event is a single security-relevant occurrence. TokenPrefix carries
// at most the first 8 characters of the presented value; the full
// value never reaches the sink.
type Event struct {
	Action      Action
	TenantID    uuid.UUID
	SubjectType domain.SubjectType
	SubjectID   uuid.UUID
	TokenPrefix string
	Detail      string
	At          time.Time
}

// Sink receives security events. Implementations must not block on
// slow downstream storage; best effort delivery is acceptable.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// Logger is a Sink writing events as structured slog records.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a slog-backed audit sink.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Record(ctx context.Context, e Event) {
	l.logger.InfoContext(ctx, "audit",
		"action", string(e.Action),
		"tenant_id", e.TenantID,
		"subject_type", string(e.SubjectType),
		"subject_id", e.SubjectID,
		"token_prefix", e.TokenPrefix,
		"detail", e.Detail,
		"at", e.At,
	)
}

// Nop is a Sink that discards all events. Useful in tests.
type Nop struct{}

func (Nop) Record(ctx context.Context, e Event) {}
