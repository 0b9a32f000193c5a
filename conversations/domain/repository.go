package domain

import "context"

// ConversationRepository defines the persistence operations for
// conversations.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	// FindActiveByContact returns the single ACTIVE conversation of a
	// (contact, tenant) pair, or ErrConversationNotFound.
	FindActiveByContact(ctx context.Context, contactID, tenantID string) (*Conversation, error)
	Update(ctx context.Context, conversation *Conversation) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateAiSession(ctx context.Context, id, sessionID string) error
	ListByTenant(ctx context.Context, tenantID string, status Status, limit, offset int) ([]*Conversation, error)
}
