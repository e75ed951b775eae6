package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the subject of email verification tokens. Authentication
// itself is handled elsewhere; this core only flips verification state.
type User struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Email         string
	Name          string
	EmailVerified bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}
