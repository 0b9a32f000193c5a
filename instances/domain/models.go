package domain

import "time"

// Instance is one connected gateway channel (a WhatsApp number) belonging to
// a tenant. Webhook URLs are scoped per (tenant, instance name); the
// internal id is what conversations reference for reporting joins.
type Instance struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	GatewayID string    `json:"gateway_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
