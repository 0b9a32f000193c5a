package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
	"github.com/wappanel/wappanel/messages/domain"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/ttlcache"
)

// Ingest persists messages idempotently and serves the read side.
type Ingest struct {
	repo    domain.MessageRepository
	cache   *ttlcache.Cache
	pageTTL time.Duration
}

func NewIngest(repo domain.MessageRepository, cache *ttlcache.Cache, pageTTL time.Duration) *Ingest {
	return &Ingest{repo: repo, cache: cache, pageTTL: pageTTL}
}

// SaveInput is a gateway message after extraction and filtering.
type SaveInput struct {
	TenantID         string
	ConversationID   string
	GatewayMessageID string
	SenderID         string
	SenderPhone      string
	Content          string
	MediaURL         string
	RawType          string
	RawStatus        string
	FromMe           bool
	PushName         string
	IsGroup          bool
	GatewayTimestamp int64
	InstanceName     string
	Event            string
}

func (in SaveInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.TenantID, validation.Required),
		validation.Field(&in.ConversationID, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

// Save stores a message. When the gateway message id already exists
// anywhere in the tenant the call is a duplicate: only the delivery
// status is refreshed and the existing row comes back with the
// duplicate flag set. Never inserts a second row for the same gateway
// id within a tenant.
func (s *Ingest) Save(ctx context.Context, in SaveInput) (*domain.Message, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	if in.GatewayMessageID != "" {
		existing, err := s.findExisting(ctx, in)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return s.refreshDuplicate(ctx, existing, in)
		}
	}

	message := &domain.Message{
		TenantID:         in.TenantID,
		ConversationID:   in.ConversationID,
		GatewayMessageID: in.GatewayMessageID,
		SenderID:         in.SenderID,
		Role:             domain.RoleUser,
		SenderType:       domain.SenderContact,
		Type:             domain.NormalizeType(in.RawType),
		Content:          in.Content,
		MediaURL:         in.MediaURL,
		Status:           domain.NormalizeDeliveryStatus(in.RawStatus),
		FromMe:           in.FromMe,
		Metadata: map[string]any{
			"push_name":         in.PushName,
			"phone":             in.SenderPhone,
			"is_group":          in.IsGroup,
			"from_me":           in.FromMe,
			"gateway_timestamp": in.GatewayTimestamp,
			"instance":          in.InstanceName,
			"event":             in.Event,
			"gateway_id":        in.GatewayMessageID,
		},
	}
	if in.FromMe {
		// Sent from the business side (phone or send-message event).
		message.Role = domain.RoleAssistant
		message.SenderType = domain.SenderUser
	}

	if err := s.repo.Create(ctx, message); err != nil {
		return nil, false, fmt.Errorf("create message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"message_id":      message.ID,
		"conversation_id": in.ConversationID,
		"tenant_id":       in.TenantID,
		"type":            message.Type,
		"from_me":         in.FromMe,
	}).Info("[MESSAGES] Message stored")

	s.invalidate(in.TenantID, in.ConversationID)
	return message, false, nil
}

func (s *Ingest) findExisting(ctx context.Context, in SaveInput) (*domain.Message, error) {
	existing, err := s.repo.FindByGatewayID(ctx, in.GatewayMessageID, in.ConversationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrMessageNotFound) {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}

	// Contact resolution may have moved the id to another conversation
	// between deliveries; the tenant-wide check catches that.
	existing, err = s.repo.FindByGatewayIDForTenant(ctx, in.GatewayMessageID, in.TenantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrMessageNotFound) {
		return nil, fmt.Errorf("tenant duplicate check: %w", err)
	}
	return nil, nil
}

func (s *Ingest) refreshDuplicate(ctx context.Context, existing *domain.Message, in SaveInput) (*domain.Message, bool, error) {
	status := domain.NormalizeDeliveryStatus(in.RawStatus)
	if in.RawStatus != "" && status != existing.Status {
		if err := s.repo.UpdateDeliveryStatus(ctx, existing.ID, status); err != nil {
			return nil, false, fmt.Errorf("update duplicate status: %w", err)
		}
		existing.Status = status
	}

	logrus.WithFields(logrus.Fields{
		"message_id":      existing.ID,
		"gateway_id":      in.GatewayMessageID,
		"conversation_id": existing.ConversationID,
	}).Info("[MESSAGES] Duplicate delivery, existing message returned")

	s.invalidate(existing.TenantID, existing.ConversationID)
	return existing, true, nil
}

// RefreshDeliveryStatus persists a delivery-status change and drops the
// cached pages still carrying the old status.
func (s *Ingest) RefreshDeliveryStatus(ctx context.Context, message *domain.Message, status domain.DeliveryStatus) error {
	if status == message.Status {
		return nil
	}
	if err := s.repo.UpdateDeliveryStatus(ctx, message.ID, status); err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	message.Status = status
	s.invalidate(message.TenantID, message.ConversationID)
	return nil
}

// SaveAutomatedReply stores an AI-authored outbound reply. Locally
// originated, so no idempotency check applies.
func (s *Ingest) SaveAutomatedReply(ctx context.Context, tenantID, conversationID, agentID, content string) (*domain.Message, error) {
	message := &domain.Message{
		TenantID:       tenantID,
		ConversationID: conversationID,
		SenderID:       agentID,
		Role:           domain.RoleAssistant,
		SenderType:     domain.SenderAgent,
		Type:           domain.TypeText,
		Content:        content,
		Status:         domain.StatusSent,
		FromMe:         true,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("create automated reply: %w", err)
	}
	s.invalidate(tenantID, conversationID)
	return message, nil
}

// SaveManualReply stores a human-operator outbound reply.
func (s *Ingest) SaveManualReply(ctx context.Context, tenantID, conversationID, userID, content string) (*domain.Message, error) {
	message := &domain.Message{
		TenantID:       tenantID,
		ConversationID: conversationID,
		SenderID:       userID,
		Role:           domain.RoleUser,
		SenderType:     domain.SenderUser,
		Type:           domain.TypeText,
		Content:        content,
		Status:         domain.StatusSent,
		FromMe:         true,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("create manual reply: %w", err)
	}
	s.invalidate(tenantID, conversationID)
	return message, nil
}

// GetConversationHistory returns the last `limit` messages in
// chronological order, for the AI context window.
func (s *Ingest) GetConversationHistory(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	return s.repo.History(ctx, conversationID, limit)
}

func (s *Ingest) GetByType(ctx context.Context, conversationID string, messageType domain.MessageType) ([]*domain.Message, error) {
	return s.repo.ListByType(ctx, conversationID, messageType)
}

func (s *Ingest) GetByStatus(ctx context.Context, conversationID string, status domain.DeliveryStatus) ([]*domain.Message, error) {
	return s.repo.ListByStatus(ctx, conversationID, status)
}

func (s *Ingest) GetByRole(ctx context.Context, conversationID string, role domain.Role) ([]*domain.Message, error) {
	return s.repo.ListByRole(ctx, conversationID, role)
}

// GetOptimizedPage serves a paginated read through the page cache. The
// projection behind it skips the metadata column.
func (s *Ingest) GetOptimizedPage(ctx context.Context, conversationID string, limit, offset int, useCache bool) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	key := ttlcache.MessagePageKey(conversationID, limit, offset)

	if useCache && s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if page, ok := cached.([]*domain.Message); ok {
				return page, nil
			}
		}
	}

	page, err := s.repo.ListPage(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	if useCache && s.cache != nil {
		s.cache.Set(key, page, s.pageTTL)
	}
	return page, nil
}

func (s *Ingest) invalidate(tenantID, conversationID string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidatePattern(ttlcache.MessagePagePattern(conversationID))
	s.cache.Invalidate(ttlcache.ConversationListKey(tenantID))
}
