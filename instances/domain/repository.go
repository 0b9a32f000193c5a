package domain

import (
	"context"
	"errors"
)

// ErrInstanceNotFound is returned when no instance matches the lookup.
var ErrInstanceNotFound = errors.New("instance not found")

// InstanceRepository defines the persistence operations for gateway
// instances.
type InstanceRepository interface {
	Create(ctx context.Context, instance *Instance) error
	GetByID(ctx context.Context, id string) (*Instance, error)
	GetByNameAndTenant(ctx context.Context, name, tenantID string) (*Instance, error)
	Update(ctx context.Context, instance *Instance) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Instance, error)
}
