package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel/instances/domain"
	"gorm.io/gorm"
)

type instanceModel struct {
	ID        string    `gorm:"primaryKey"`
	TenantID  string    `gorm:"index:idx_instances_tenant_name,priority:1;not null"`
	Name      string    `gorm:"index:idx_instances_tenant_name,priority:2;not null"`
	GatewayID string
	Status    string    `gorm:"default:'disconnected'"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (instanceModel) TableName() string {
	return "instances"
}

type InstanceGormRepository struct {
	db *gorm.DB
}

func NewInstanceGormRepository(db *gorm.DB) *InstanceGormRepository {
	return &InstanceGormRepository{db: db}
}

func (r *InstanceGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&instanceModel{})
}

func (r *InstanceGormRepository) Create(ctx context.Context, instance *domain.Instance) error {
	if instance.ID == "" {
		instance.ID = uuid.New().String()
	}
	now := time.Now()
	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = now
	}
	instance.UpdatedAt = now

	m := toInstanceModel(instance)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *InstanceGormRepository) GetByID(ctx context.Context, id string) (*domain.Instance, error) {
	var m instanceModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, err
	}
	return fromInstanceModel(m), nil
}

func (r *InstanceGormRepository) GetByNameAndTenant(ctx context.Context, name, tenantID string) (*domain.Instance, error) {
	var m instanceModel
	err := r.db.WithContext(ctx).Where("name = ? AND tenant_id = ?", name, tenantID).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, err
	}
	return fromInstanceModel(m), nil
}

func (r *InstanceGormRepository) Update(ctx context.Context, instance *domain.Instance) error {
	instance.UpdatedAt = time.Now()
	m := toInstanceModel(instance)

	result := r.db.WithContext(ctx).Model(&instanceModel{ID: instance.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}

func (r *InstanceGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&instanceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}

func (r *InstanceGormRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Instance, error) {
	var models []instanceModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	instances := make([]*domain.Instance, 0, len(models))
	for _, m := range models {
		instances = append(instances, fromInstanceModel(m))
	}
	return instances, nil
}

func toInstanceModel(i *domain.Instance) instanceModel {
	return instanceModel{
		ID:        i.ID,
		TenantID:  i.TenantID,
		Name:      i.Name,
		GatewayID: i.GatewayID,
		Status:    i.Status,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func fromInstanceModel(m instanceModel) *domain.Instance {
	return &domain.Instance{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Name:      m.Name,
		GatewayID: m.GatewayID,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
