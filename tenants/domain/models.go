package domain

import "time"

// Tenant is an isolated customer account. Every entity in the pipeline is
// scoped by tenant id.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Enabled   bool      `json:"enabled"`
	AI        AIConfig  `json:"ai"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AIConfig holds the tenant's automation settings. The API key is stored
// encrypted; pkg/crypto decrypts it right before the remote call.
type AIConfig struct {
	Enabled         bool   `json:"enabled"`
	Model           string `json:"model,omitempty"`
	EncryptedAPIKey string `json:"-"`
	SystemPrompt    string `json:"system_prompt,omitempty"`
}

// HasAIConfig reports whether automated replies can be produced for this
// tenant at all.
func (t *Tenant) HasAIConfig() bool {
	return t.AI.Enabled && t.AI.EncryptedAPIKey != ""
}

// Summary is the cheap projection kept in the tenant cache.
type Summary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Enabled bool   `json:"enabled"`
	HasAI   bool   `json:"has_ai"`
}

// Summarize builds the cacheable projection of a tenant.
func (t *Tenant) Summarize() Summary {
	return Summary{
		ID:      t.ID,
		Name:    t.Name,
		Slug:    t.Slug,
		Enabled: t.Enabled,
		HasAI:   t.HasAIConfig(),
	}
}
