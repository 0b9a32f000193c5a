package domain

import "time"

// Status is the conversation lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusClosed   Status = "CLOSED"
	StatusArchived Status = "ARCHIVED"
)

// transitions is the full set of legal status changes. Anything absent here
// fails with ErrInvalidTransition.
var transitions = map[Status][]Status{
	StatusActive:   {StatusPaused, StatusClosed, StatusArchived},
	StatusPaused:   {StatusActive, StatusClosed, StatusArchived},
	StatusClosed:   {StatusActive, StatusArchived},
	StatusArchived: {StatusActive},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Conversation is a thread between one contact and one tenant over one
// channel. At most one ACTIVE conversation exists per (contact, tenant),
// enforced by lookup-before-create rather than a schema constraint.
type Conversation struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	ContactID       string     `json:"contact_id"`
	Status          Status     `json:"status"`
	Type            string     `json:"type"`
	Channel         string     `json:"channel"`
	ChannelInstance string     `json:"channel_instance"`
	InstanceID      string     `json:"instance_id,omitempty"`
	AssignedUserID  string     `json:"assigned_user_id,omitempty"`
	AgentID         string     `json:"agent_id,omitempty"`
	IsAiActive      bool       `json:"is_ai_active"`
	AiSessionID     string     `json:"ai_session_id,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
