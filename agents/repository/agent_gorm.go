package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel/agents/domain"
	"gorm.io/gorm"
)

type agentModel struct {
	ID           string    `gorm:"primaryKey"`
	TenantID     string    `gorm:"index:idx_agents_tenant;not null"`
	Name         string    `gorm:"not null"`
	Active       bool      `gorm:"default:true"`
	Lead         bool      `gorm:"default:false"`
	Model        string
	SystemPrompt string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (agentModel) TableName() string {
	return "agents"
}

type AgentGormRepository struct {
	db *gorm.DB
}

func NewAgentGormRepository(db *gorm.DB) *AgentGormRepository {
	return &AgentGormRepository{db: db}
}

func (r *AgentGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&agentModel{})
}

func (r *AgentGormRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	now := time.Now()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now

	m := toAgentModel(agent)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *AgentGormRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	var m agentModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}
	return fromAgentModel(m), nil
}

func (r *AgentGormRepository) GetLeadAgent(ctx context.Context, tenantID string) (*domain.Agent, error) {
	var m agentModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND lead = ? AND active = ?", tenantID, true, true).
		Order("updated_at DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}
	return fromAgentModel(m), nil
}

func (r *AgentGormRepository) Update(ctx context.Context, agent *domain.Agent) error {
	agent.UpdatedAt = time.Now()
	m := toAgentModel(agent)

	result := r.db.WithContext(ctx).Model(&agentModel{ID: agent.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func (r *AgentGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&agentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func (r *AgentGormRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Agent, error) {
	var models []agentModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	agents := make([]*domain.Agent, 0, len(models))
	for _, m := range models {
		agents = append(agents, fromAgentModel(m))
	}
	return agents, nil
}

func toAgentModel(a *domain.Agent) agentModel {
	return agentModel{
		ID:           a.ID,
		TenantID:     a.TenantID,
		Name:         a.Name,
		Active:       a.Active,
		Lead:         a.Lead,
		Model:        a.Model,
		SystemPrompt: a.SystemPrompt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func fromAgentModel(m agentModel) *domain.Agent {
	return &domain.Agent{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Name:         m.Name,
		Active:       m.Active,
		Lead:         m.Lead,
		Model:        m.Model,
		SystemPrompt: m.SystemPrompt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
