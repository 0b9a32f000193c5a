package domain

import "time"

// ContactStatus tags where a contact stands in the funnel.
type ContactStatus string

const (
	StatusNew      ContactStatus = "NEW"
	StatusActive   ContactStatus = "ACTIVE"
	StatusBlocked  ContactStatus = "BLOCKED"
	StatusArchived ContactStatus = "ARCHIVED"
)

// Contact identifies a remote chat participant. Within a tenant at most one
// contact should represent a real-world phone number; the store does not
// enforce this, the resolver's lookup order is what makes identities
// converge.
type Contact struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	ChannelID   string        `json:"channel_id"`
	LastChannel string        `json:"last_channel"`
	Status      ContactStatus `json:"status"`
	Source      string        `json:"source"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
