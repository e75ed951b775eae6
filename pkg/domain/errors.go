package domain

import "errors"

// Token errors
var (
	ErrTokenMalformed = errors.New("malformed confirmation token")
	ErrTokenNotFound  = errors.New("confirmation token not found")
	ErrTokenExpired   = errors.New("confirmation token expired")
	ErrTokenConsumed  = errors.New("confirmation token already used")
	ErrTenantMismatch = errors.New("token does not belong to tenant")
)

// Scheduling errors
var (
	ErrInvalidInterval     = errors.New("appointment interval is invalid")
	ErrInvalidTransition   = errors.New("appointment status transition not allowed")
	ErrSlotConflict        = errors.New("appointment time slot conflicts with an existing appointment")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Subject errors
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrTenantNotFound = errors.New("tenant not found")
)
