package domain

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant matches the lookup.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrDuplicateTenant is returned when a tenant with the same slug exists.
	ErrDuplicateTenant = errors.New("tenant with this slug already exists")
)
