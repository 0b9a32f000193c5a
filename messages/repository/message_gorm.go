package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wappanel/wappanel/messages/domain"
	"gorm.io/gorm"
)

type messageModel struct {
	ID               string    `gorm:"primaryKey"`
	TenantID         string    `gorm:"index:idx_messages_tenant;not null"`
	ConversationID   string    `gorm:"index:idx_messages_conversation;not null"`
	GatewayMessageID string    `gorm:"index:idx_messages_gateway"`
	Role             string    `gorm:"default:'USER'"`
	SenderType       string    `gorm:"default:'CONTACT'"`
	SenderID         string
	Type             string    `gorm:"default:'TEXT'"`
	Content          string    `gorm:"type:text"`
	MediaURL         string
	Status           string    `gorm:"default:'DELIVERED'"`
	FromMe           bool      `gorm:"default:false"`
	Metadata         string    `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (messageModel) TableName() string {
	return "messages"
}

type MessageGormRepository struct {
	db *gorm.DB
}

func NewMessageGormRepository(db *gorm.DB) *MessageGormRepository {
	return &MessageGormRepository{db: db}
}

func (r *MessageGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&messageModel{})
}

func (r *MessageGormRepository) Create(ctx context.Context, message *domain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	now := time.Now()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	message.UpdatedAt = now

	m := toMessageModel(message)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *MessageGormRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var m messageModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return fromMessageModel(m), nil
}

func (r *MessageGormRepository) FindByGatewayID(ctx context.Context, gatewayID, conversationID string) (*domain.Message, error) {
	var m messageModel
	err := r.db.WithContext(ctx).
		Where("gateway_message_id = ? AND conversation_id = ?", gatewayID, conversationID).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return fromMessageModel(m), nil
}

func (r *MessageGormRepository) FindByGatewayIDForTenant(ctx context.Context, gatewayID, tenantID string) (*domain.Message, error) {
	var m messageModel
	err := r.db.WithContext(ctx).
		Where("gateway_message_id = ? AND tenant_id = ?", gatewayID, tenantID).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return fromMessageModel(m), nil
}

func (r *MessageGormRepository) UpdateDeliveryStatus(ctx context.Context, id string, status domain.DeliveryStatus) error {
	result := r.db.WithContext(ctx).Model(&messageModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *MessageGormRepository) History(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	var models []messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order for the AI context window.
	messages := make([]*domain.Message, len(models))
	for i, m := range models {
		messages[len(models)-1-i] = fromMessageModel(m)
	}
	return messages, nil
}

func (r *MessageGormRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	var models []messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromMessageModels(models), nil
}

func (r *MessageGormRepository) ListPage(ctx context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	var models []messageModel
	err := r.db.WithContext(ctx).
		Select("id", "tenant_id", "conversation_id", "gateway_message_id", "role",
			"sender_type", "sender_id", "type", "content", "media_url", "status",
			"from_me", "created_at", "updated_at").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromMessageModels(models), nil
}

func (r *MessageGormRepository) ListByType(ctx context.Context, conversationID string, messageType domain.MessageType) ([]*domain.Message, error) {
	return r.listFiltered(ctx, conversationID, "type", string(messageType))
}

func (r *MessageGormRepository) ListByStatus(ctx context.Context, conversationID string, status domain.DeliveryStatus) ([]*domain.Message, error) {
	return r.listFiltered(ctx, conversationID, "status", string(status))
}

func (r *MessageGormRepository) ListByRole(ctx context.Context, conversationID string, role domain.Role) ([]*domain.Message, error) {
	return r.listFiltered(ctx, conversationID, "role", string(role))
}

func (r *MessageGormRepository) LastByRole(ctx context.Context, conversationID string, role domain.Role) (*domain.Message, error) {
	var m messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND role = ?", conversationID, string(role)).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return fromMessageModel(m), nil
}

func (r *MessageGormRepository) listFiltered(ctx context.Context, conversationID, column, value string) ([]*domain.Message, error) {
	var models []messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND "+column+" = ?", conversationID, value).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromMessageModels(models), nil
}

func toMessageModel(message *domain.Message) messageModel {
	metadata := ""
	if len(message.Metadata) > 0 {
		raw, err := json.Marshal(message.Metadata)
		if err != nil {
			logrus.Warnf("[MESSAGES] Metadata not serializable, dropped: %v", err)
		} else {
			metadata = string(raw)
		}
	}
	return messageModel{
		ID:               message.ID,
		TenantID:         message.TenantID,
		ConversationID:   message.ConversationID,
		GatewayMessageID: message.GatewayMessageID,
		Role:             string(message.Role),
		SenderType:       string(message.SenderType),
		SenderID:         message.SenderID,
		Type:             string(message.Type),
		Content:          message.Content,
		MediaURL:         message.MediaURL,
		Status:           string(message.Status),
		FromMe:           message.FromMe,
		Metadata:         metadata,
		CreatedAt:        message.CreatedAt,
		UpdatedAt:        message.UpdatedAt,
	}
}

func fromMessageModel(m messageModel) *domain.Message {
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			logrus.Warnf("[MESSAGES] Stored metadata unreadable for %s: %v", m.ID, err)
		}
	}
	return &domain.Message{
		ID:               m.ID,
		TenantID:         m.TenantID,
		ConversationID:   m.ConversationID,
		GatewayMessageID: m.GatewayMessageID,
		Role:             domain.Role(m.Role),
		SenderType:       domain.SenderType(m.SenderType),
		SenderID:         m.SenderID,
		Type:             domain.MessageType(m.Type),
		Content:          m.Content,
		MediaURL:         m.MediaURL,
		Status:           domain.DeliveryStatus(m.Status),
		FromMe:           m.FromMe,
		Metadata:         metadata,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromMessageModels(models []messageModel) []*domain.Message {
	messages := make([]*domain.Message, 0, len(models))
	for _, m := range models {
		messages = append(messages, fromMessageModel(m))
	}
	return messages
}
