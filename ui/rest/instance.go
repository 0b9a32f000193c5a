package rest

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	instancesDomain "github.com/wappanel/wappanel/instances/domain"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/utils"
)

type Instance struct {
	Repo instancesDomain.InstanceRepository
}

func InitRestInstance(app fiber.Router, repo instancesDomain.InstanceRepository) Instance {
	handler := Instance{Repo: repo}

	group := app.Group("/tenants/:tenantID/instances")
	group.Post("/", handler.Create)
	group.Get("/", handler.List)
	group.Put("/:id", handler.Update)
	group.Delete("/:id", handler.Delete)

	return handler
}

type instanceRequest struct {
	Name      string `json:"name"`
	GatewayID string `json:"gateway_id"`
	Status    string `json:"status"`
}

func (r instanceRequest) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func (h *Instance) Create(c *fiber.Ctx) error {
	var req instanceRequest
	utils.PanicIfNeeded(c.BodyParser(&req))
	utils.PanicIfNeeded(req.validate())

	instance := &instancesDomain.Instance{
		TenantID:  c.Params("tenantID"),
		Name:      req.Name,
		GatewayID: req.GatewayID,
		Status:    req.Status,
	}
	utils.PanicIfNeeded(h.Repo.Create(c.UserContext(), instance))

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Instance created",
		Results: instance,
	})
}

func (h *Instance) List(c *fiber.Ctx) error {
	instances, err := h.Repo.ListByTenant(c.UserContext(), c.Params("tenantID"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instances retrieved",
		Results: instances,
	})
}

func (h *Instance) Update(c *fiber.Ctx) error {
	instance, err := h.Repo.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	var req instanceRequest
	utils.PanicIfNeeded(c.BodyParser(&req))

	if req.Name != "" {
		instance.Name = req.Name
	}
	if req.GatewayID != "" {
		instance.GatewayID = req.GatewayID
	}
	if req.Status != "" {
		instance.Status = req.Status
	}

	utils.PanicIfNeeded(h.Repo.Update(c.UserContext(), instance))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance updated",
		Results: instance,
	})
}

func (h *Instance) Delete(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.Repo.Delete(c.UserContext(), c.Params("id")))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance deleted",
	})
}
