package domain

import "time"

// Agent is an automation profile owned by a tenant. The lead agent is the
// one auto-assigned to new conversations; a tenant has at most one active
// lead agent at a time (flagged manually, not enforced by schema).
type Agent struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	Lead         bool      `json:"lead"`
	Model        string    `json:"model,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
