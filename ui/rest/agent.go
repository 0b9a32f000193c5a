package rest

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	agentsDomain "github.com/wappanel/wappanel/agents/domain"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/utils"
)

type Agent struct {
	Repo agentsDomain.AgentRepository
}

func InitRestAgent(app fiber.Router, repo agentsDomain.AgentRepository) Agent {
	handler := Agent{Repo: repo}

	group := app.Group("/tenants/:tenantID/agents")
	group.Post("/", handler.Create)
	group.Get("/", handler.List)
	group.Get("/:id", handler.Get)
	group.Put("/:id", handler.Update)
	group.Delete("/:id", handler.Delete)

	return handler
}

type agentRequest struct {
	Name         string `json:"name"`
	Active       *bool  `json:"active"`
	Lead         *bool  `json:"lead"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
}

func (r agentRequest) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func (h *Agent) Create(c *fiber.Ctx) error {
	var req agentRequest
	utils.PanicIfNeeded(c.BodyParser(&req))
	utils.PanicIfNeeded(req.validate())

	agent := &agentsDomain.Agent{
		TenantID:     c.Params("tenantID"),
		Name:         req.Name,
		Active:       true,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
	}
	if req.Active != nil {
		agent.Active = *req.Active
	}
	if req.Lead != nil {
		agent.Lead = *req.Lead
	}

	utils.PanicIfNeeded(h.Repo.Create(c.UserContext(), agent))

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Agent created",
		Results: agent,
	})
}

func (h *Agent) List(c *fiber.Ctx) error {
	agents, err := h.Repo.ListByTenant(c.UserContext(), c.Params("tenantID"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Agents retrieved",
		Results: agents,
	})
}

func (h *Agent) Get(c *fiber.Ctx) error {
	agent, err := h.Repo.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Agent retrieved",
		Results: agent,
	})
}

func (h *Agent) Update(c *fiber.Ctx) error {
	agent, err := h.Repo.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	var req agentRequest
	utils.PanicIfNeeded(c.BodyParser(&req))

	if req.Name != "" {
		agent.Name = req.Name
	}
	if req.Active != nil {
		agent.Active = *req.Active
	}
	if req.Lead != nil {
		agent.Lead = *req.Lead
	}
	if req.Model != "" {
		agent.Model = req.Model
	}
	if req.SystemPrompt != "" {
		agent.SystemPrompt = req.SystemPrompt
	}

	utils.PanicIfNeeded(h.Repo.Update(c.UserContext(), agent))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Agent updated",
		Results: agent,
	})
}

func (h *Agent) Delete(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.Repo.Delete(c.UserContext(), c.Params("id")))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Agent deleted",
	})
}
