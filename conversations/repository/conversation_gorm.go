package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel/conversations/domain"
	"gorm.io/gorm"
)

type conversationModel struct {
	ID              string     `gorm:"primaryKey"`
	TenantID        string     `gorm:"index:idx_conversations_tenant;not null"`
	ContactID       string     `gorm:"index:idx_conversations_contact;not null"`
	Status          string     `gorm:"index:idx_conversations_status;default:'ACTIVE'"`
	Type            string     `gorm:"default:'direct'"`
	Channel         string     `gorm:"default:'whatsapp'"`
	ChannelInstance string
	InstanceID      string
	AssignedUserID  string
	AgentID         string
	IsAiActive      bool       `gorm:"default:false"`
	AiSessionID     string
	LastMessageAt   *time.Time
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

func (conversationModel) TableName() string {
	return "conversations"
}

type ConversationGormRepository struct {
	db *gorm.DB
}

func NewConversationGormRepository(db *gorm.DB) *ConversationGormRepository {
	return &ConversationGormRepository{db: db}
}

func (r *ConversationGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&conversationModel{})
}

func (r *ConversationGormRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	now := time.Now()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	conversation.UpdatedAt = now

	m := toConversationModel(conversation)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ConversationGormRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var m conversationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return fromConversationModel(m), nil
}

func (r *ConversationGormRepository) FindActiveByContact(ctx context.Context, contactID, tenantID string) (*domain.Conversation, error) {
	var m conversationModel
	err := r.db.WithContext(ctx).
		Where("contact_id = ? AND tenant_id = ? AND status = ?", contactID, tenantID, string(domain.StatusActive)).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return fromConversationModel(m), nil
}

func (r *ConversationGormRepository) Update(ctx context.Context, conversation *domain.Conversation) error {
	conversation.UpdatedAt = time.Now()
	m := toConversationModel(conversation)

	result := r.db.WithContext(ctx).Model(&conversationModel{ID: conversation.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationGormRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	result := r.db.WithContext(ctx).Model(&conversationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationGormRepository) UpdateAiSession(ctx context.Context, id, sessionID string) error {
	result := r.db.WithContext(ctx).Model(&conversationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"ai_session_id": sessionID, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationGormRepository) ListByTenant(ctx context.Context, tenantID string, status domain.Status, limit, offset int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var models []conversationModel
	err := query.Order("last_message_at DESC").Limit(limit).Offset(offset).Find(&models).Error
	if err != nil {
		return nil, err
	}
	conversations := make([]*domain.Conversation, 0, len(models))
	for _, m := range models {
		conversations = append(conversations, fromConversationModel(m))
	}
	return conversations, nil
}

func toConversationModel(c *domain.Conversation) conversationModel {
	return conversationModel{
		ID:              c.ID,
		TenantID:        c.TenantID,
		ContactID:       c.ContactID,
		Status:          string(c.Status),
		Type:            c.Type,
		Channel:         c.Channel,
		ChannelInstance: c.ChannelInstance,
		InstanceID:      c.InstanceID,
		AssignedUserID:  c.AssignedUserID,
		AgentID:         c.AgentID,
		IsAiActive:      c.IsAiActive,
		AiSessionID:     c.AiSessionID,
		LastMessageAt:   c.LastMessageAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromConversationModel(m conversationModel) *domain.Conversation {
	return &domain.Conversation{
		ID:              m.ID,
		TenantID:        m.TenantID,
		ContactID:       m.ContactID,
		Status:          domain.Status(m.Status),
		Type:            m.Type,
		Channel:         m.Channel,
		ChannelInstance: m.ChannelInstance,
		InstanceID:      m.InstanceID,
		AssignedUserID:  m.AssignedUserID,
		AgentID:         m.AgentID,
		IsAiActive:      m.IsAiActive,
		AiSessionID:     m.AiSessionID,
		LastMessageAt:   m.LastMessageAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
