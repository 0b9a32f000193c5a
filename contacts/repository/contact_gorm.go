package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel/contacts/domain"
	"gorm.io/gorm"
)

type contactModel struct {
	ID          string    `gorm:"primaryKey"`
	TenantID    string    `gorm:"index:idx_contacts_tenant;not null"`
	Name        string
	Phone       string    `gorm:"index:idx_contacts_phone"`
	ChannelID   string    `gorm:"index:idx_contacts_channel"`
	LastChannel string
	Status      string    `gorm:"default:'NEW'"`
	Source      string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (contactModel) TableName() string {
	return "contacts"
}

type ContactGormRepository struct {
	db *gorm.DB
}

func NewContactGormRepository(db *gorm.DB) *ContactGormRepository {
	return &ContactGormRepository{db: db}
}

func (r *ContactGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&contactModel{})
}

func (r *ContactGormRepository) Create(ctx context.Context, contact *domain.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	now := time.Now()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	m := toContactModel(contact)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ContactGormRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	var m contactModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return fromContactModel(m), nil
}

func (r *ContactGormRepository) FindByChannelID(ctx context.Context, channelID, tenantID string) (*domain.Contact, error) {
	var m contactModel
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND tenant_id = ?", channelID, tenantID).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return fromContactModel(m), nil
}

func (r *ContactGormRepository) FindByPhone(ctx context.Context, phone, tenantID string) (*domain.Contact, error) {
	var m contactModel
	err := r.db.WithContext(ctx).
		Where("phone = ? AND tenant_id = ?", phone, tenantID).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return fromContactModel(m), nil
}

func (r *ContactGormRepository) FindByPhoneFragment(ctx context.Context, fragment, tenantID string) ([]*domain.Contact, error) {
	var models []contactModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND phone LIKE ?", tenantID, "%"+fragment+"%").
		Limit(50).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	contacts := make([]*domain.Contact, 0, len(models))
	for _, m := range models {
		contacts = append(contacts, fromContactModel(m))
	}
	return contacts, nil
}

func (r *ContactGormRepository) Update(ctx context.Context, contact *domain.Contact) error {
	contact.UpdatedAt = time.Now()
	m := toContactModel(contact)

	result := r.db.WithContext(ctx).Model(&contactModel{ID: contact.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

func (r *ContactGormRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Contact, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []contactModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	contacts := make([]*domain.Contact, 0, len(models))
	for _, m := range models {
		contacts = append(contacts, fromContactModel(m))
	}
	return contacts, nil
}

func toContactModel(c *domain.Contact) contactModel {
	return contactModel{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Name:        c.Name,
		Phone:       c.Phone,
		ChannelID:   c.ChannelID,
		LastChannel: c.LastChannel,
		Status:      string(c.Status),
		Source:      c.Source,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromContactModel(m contactModel) *domain.Contact {
	return &domain.Contact{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Phone:       m.Phone,
		ChannelID:   m.ChannelID,
		LastChannel: m.LastChannel,
		Status:      domain.ContactStatus(m.Status),
		Source:      m.Source,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
