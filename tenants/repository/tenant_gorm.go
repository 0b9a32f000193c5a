package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel/tenants/domain"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type tenantModel struct {
	ID             string    `gorm:"primaryKey"`
	Name           string    `gorm:"not null"`
	Slug           string    `gorm:"uniqueIndex:idx_tenants_slug;not null"`
	Enabled        bool      `gorm:"default:true"`
	AIEnabled      bool      `gorm:"default:false"`
	AIModel        string
	AIEncryptedKey string    `gorm:"type:text"`
	AISystemPrompt string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (tenantModel) TableName() string {
	return "tenants"
}

// --- Repository Implementation ---

type TenantGormRepository struct {
	db *gorm.DB
}

func NewTenantGormRepository(db *gorm.DB) *TenantGormRepository {
	return &TenantGormRepository{db: db}
}

func (r *TenantGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&tenantModel{})
}

func (r *TenantGormRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	now := time.Now()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now

	m := toTenantModel(tenant)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicateErr(err) {
			return domain.ErrDuplicateTenant
		}
		return err
	}
	return nil
}

func (r *TenantGormRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var m tenantModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return fromTenantModel(m), nil
}

func (r *TenantGormRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	var m tenantModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&m).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return fromTenantModel(m), nil
}

func (r *TenantGormRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	tenant.UpdatedAt = time.Now()
	m := toTenantModel(tenant)

	result := r.db.WithContext(ctx).Model(&tenantModel{ID: tenant.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		if isDuplicateErr(result.Error) {
			return domain.ErrDuplicateTenant
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *TenantGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&tenantModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *TenantGormRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	var models []tenantModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	tenants := make([]*domain.Tenant, 0, len(models))
	for _, m := range models {
		tenants = append(tenants, fromTenantModel(m))
	}
	return tenants, nil
}

// --- Mappers ---

func toTenantModel(t *domain.Tenant) tenantModel {
	return tenantModel{
		ID:             t.ID,
		Name:           t.Name,
		Slug:           t.Slug,
		Enabled:        t.Enabled,
		AIEnabled:      t.AI.Enabled,
		AIModel:        t.AI.Model,
		AIEncryptedKey: t.AI.EncryptedAPIKey,
		AISystemPrompt: t.AI.SystemPrompt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func fromTenantModel(m tenantModel) *domain.Tenant {
	return &domain.Tenant{
		ID:      m.ID,
		Name:    m.Name,
		Slug:    m.Slug,
		Enabled: m.Enabled,
		AI: domain.AIConfig{
			Enabled:         m.AIEnabled,
			Model:           m.AIModel,
			EncryptedAPIKey: m.AIEncryptedKey,
			SystemPrompt:    m.AISystemPrompt,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func isDuplicateErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}
