package domain

import "context"

// Page bounds for read queries.
const DefaultPageSize = 50

// MessageRepository defines the persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	// FindByGatewayID looks for a gateway message id inside one
	// conversation.
	FindByGatewayID(ctx context.Context, gatewayID, conversationID string) (*Message, error)
	// FindByGatewayIDForTenant looks across every conversation of the
	// tenant. The same gateway id can resolve to a different
	// conversation when contact resolution changed between deliveries.
	FindByGatewayIDForTenant(ctx context.Context, gatewayID, tenantID string) (*Message, error)
	UpdateDeliveryStatus(ctx context.Context, id string, status DeliveryStatus) error
	// History returns the last `limit` messages of a conversation in
	// chronological order.
	History(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)
	// ListPage is the light projection used by paginated reads: it
	// skips the metadata column.
	ListPage(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)
	ListByType(ctx context.Context, conversationID string, messageType MessageType) ([]*Message, error)
	ListByStatus(ctx context.Context, conversationID string, status DeliveryStatus) ([]*Message, error)
	ListByRole(ctx context.Context, conversationID string, role Role) ([]*Message, error)
	// LastByRole returns the most recent message of the role in the
	// conversation, or ErrMessageNotFound.
	LastByRole(ctx context.Context, conversationID string, role Role) (*Message, error)
}
