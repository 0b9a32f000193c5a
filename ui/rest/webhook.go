package rest

import (
	"github.com/gofiber/fiber/v2"
	webhookApp "github.com/wappanel/wappanel/webhook/application"
	webhookDomain "github.com/wappanel/wappanel/webhook/domain"
)

type Webhook struct {
	Orchestrator *webhookApp.Orchestrator
}

// InitRestWebhook mounts the gateway-facing endpoint. It stays outside
// basic auth: the gateway authenticates by knowing the tenant path.
func InitRestWebhook(app fiber.Router, orchestrator *webhookApp.Orchestrator) Webhook {
	handler := Webhook{Orchestrator: orchestrator}
	app.Post("/webhook/:tenantID/:instance", handler.Receive)
	return handler
}

func (h *Webhook) Receive(c *fiber.Ctx) error {
	var payload webhookDomain.Payload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			webhookDomain.Fail(webhookDomain.TagValidationError, "invalid json payload"))
	}

	result := h.Orchestrator.Handle(
		c.UserContext(),
		c.Params("tenantID"),
		c.Params("instance"),
		payload,
	)

	// The gateway redelivers on failure statuses, so filtered and
	// duplicate outcomes must answer 200.
	status := fiber.StatusOK
	if !result.Success {
		if result.MessageType == webhookDomain.TagValidationError {
			status = fiber.StatusBadRequest
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	return c.Status(status).JSON(result)
}
