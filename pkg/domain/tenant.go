package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary. Every token and appointment lookup
// is scoped to one tenant.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
