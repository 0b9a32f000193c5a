package rest

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/wappanel/wappanel/pkg/crypto"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/ttlcache"
	"github.com/wappanel/wappanel/pkg/utils"
	tenantsApp "github.com/wappanel/wappanel/tenants/application"
	tenantsDomain "github.com/wappanel/wappanel/tenants/domain"
)

type Tenant struct {
	Repo    tenantsDomain.TenantRepository
	Cache   *tenantsApp.ClientCache
	Generic *ttlcache.Cache
}

func InitRestTenant(app fiber.Router, repo tenantsDomain.TenantRepository, cache *tenantsApp.ClientCache, generic *ttlcache.Cache) Tenant {
	handler := Tenant{Repo: repo, Cache: cache, Generic: generic}

	group := app.Group("/tenants")
	group.Post("/", handler.Create)
	group.Get("/", handler.List)
	group.Get("/:id", handler.Get)
	group.Put("/:id", handler.Update)
	group.Delete("/:id", handler.Delete)

	return handler
}

type tenantAIRequest struct {
	Enabled      bool   `json:"enabled"`
	Model        string `json:"model"`
	APIKey       string `json:"api_key"`
	SystemPrompt string `json:"system_prompt"`
}

type tenantRequest struct {
	Name    string          `json:"name"`
	Slug    string          `json:"slug"`
	Enabled *bool           `json:"enabled"`
	AI      tenantAIRequest `json:"ai"`
}

func (r tenantRequest) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Slug, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func (h *Tenant) Create(c *fiber.Ctx) error {
	var req tenantRequest
	utils.PanicIfNeeded(c.BodyParser(&req))
	utils.PanicIfNeeded(req.validate())

	tenant := &tenantsDomain.Tenant{
		Name:    req.Name,
		Slug:    req.Slug,
		Enabled: true,
		AI: tenantsDomain.AIConfig{
			Enabled:      req.AI.Enabled,
			Model:        req.AI.Model,
			SystemPrompt: req.AI.SystemPrompt,
		},
	}
	if req.Enabled != nil {
		tenant.Enabled = *req.Enabled
	}
	if req.AI.APIKey != "" {
		encrypted, err := crypto.Encrypt(req.AI.APIKey)
		utils.PanicIfNeeded(err)
		tenant.AI.EncryptedAPIKey = encrypted
	}

	utils.PanicIfNeeded(h.Repo.Create(c.UserContext(), tenant))

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Tenant created",
		Results: tenant,
	})
}

func (h *Tenant) List(c *fiber.Ctx) error {
	tenants, err := h.Repo.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenants retrieved",
		Results: tenants,
	})
}

func (h *Tenant) Get(c *fiber.Ctx) error {
	tenant, err := h.Repo.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant retrieved",
		Results: tenant,
	})
}

func (h *Tenant) Update(c *fiber.Ctx) error {
	tenant, err := h.Repo.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	var req tenantRequest
	utils.PanicIfNeeded(c.BodyParser(&req))

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.Slug != "" {
		tenant.Slug = req.Slug
	}
	if req.Enabled != nil {
		tenant.Enabled = *req.Enabled
	}
	tenant.AI.Enabled = req.AI.Enabled
	if req.AI.Model != "" {
		tenant.AI.Model = req.AI.Model
	}
	if req.AI.SystemPrompt != "" {
		tenant.AI.SystemPrompt = req.AI.SystemPrompt
	}
	if req.AI.APIKey != "" {
		encrypted, err := crypto.Encrypt(req.AI.APIKey)
		utils.PanicIfNeeded(err)
		tenant.AI.EncryptedAPIKey = encrypted
	}

	utils.PanicIfNeeded(h.Repo.Update(c.UserContext(), tenant))
	h.invalidate(tenant.ID)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant updated",
		Results: tenant,
	})
}

func (h *Tenant) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	utils.PanicIfNeeded(h.Repo.Delete(c.UserContext(), id))
	h.invalidate(id)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant deleted",
	})
}

// invalidate drops the tenant summary plus every generic cache entry
// keyed under the tenant (contacts, conversation lists).
func (h *Tenant) invalidate(tenantID string) {
	if h.Cache != nil {
		h.Cache.Invalidate(tenantID)
	}
	if h.Generic != nil {
		h.Generic.InvalidatePattern(ttlcache.TenantPattern(tenantID))
	}
}
