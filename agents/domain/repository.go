package domain

import "context"

// AgentRepository defines the persistence operations for agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *Agent) error
	GetByID(ctx context.Context, id string) (*Agent, error)
	// GetLeadAgent returns the tenant's active lead agent, or
	// ErrAgentNotFound when the tenant is under manual-only handling.
	GetLeadAgent(ctx context.Context, tenantID string) (*Agent, error)
	Update(ctx context.Context, agent *Agent) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Agent, error)
}
