package rest

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	conversationsApp "github.com/wappanel/wappanel/conversations/application"
	conversationsDomain "github.com/wappanel/wappanel/conversations/domain"
	messagesApp "github.com/wappanel/wappanel/messages/application"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/utils"
)

type conversationBroadcaster interface {
	Broadcast(conversationID, event string, payload any)
}

type Conversation struct {
	Lifecycle *conversationsApp.Lifecycle
	Repo      conversationsDomain.ConversationRepository
	Ingest    *messagesApp.Ingest
	Hub       conversationBroadcaster
}

func InitRestConversation(app fiber.Router, lifecycle *conversationsApp.Lifecycle, repo conversationsDomain.ConversationRepository, ingest *messagesApp.Ingest, hub conversationBroadcaster) Conversation {
	handler := Conversation{Lifecycle: lifecycle, Repo: repo, Ingest: ingest, Hub: hub}

	group := app.Group("/tenants/:tenantID/conversations")
	group.Get("/", handler.List)
	group.Get("/:id", handler.Get)
	group.Put("/:id/status", handler.UpdateStatus)
	group.Put("/:id/assign", handler.Assign)
	group.Get("/:id/messages", handler.Messages)
	group.Post("/:id/messages", handler.Reply)

	return handler
}

func (h *Conversation) List(c *fiber.Ctx) error {
	status := conversationsDomain.Status(c.Query("status", string(conversationsDomain.StatusActive)))
	conversations, err := h.Lifecycle.List(
		c.UserContext(),
		c.Params("tenantID"),
		status,
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversations retrieved",
		Results: conversations,
	})
}

func (h *Conversation) Get(c *fiber.Ctx) error {
	conversation, err := h.Repo.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation retrieved",
		Results: conversation,
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Conversation) UpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	utils.PanicIfNeeded(c.BodyParser(&req))
	if err := validation.Validate(req.Status, validation.Required); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError(err.Error()))
	}

	conversation, err := h.Lifecycle.UpdateStatus(c.UserContext(), c.Params("id"), conversationsDomain.Status(req.Status))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation status updated",
		Results: conversation,
	})
}

type assignRequest struct {
	UserID string `json:"user_id"`
}

func (h *Conversation) Assign(c *fiber.Ctx) error {
	var req assignRequest
	utils.PanicIfNeeded(c.BodyParser(&req))

	conversation, err := h.Lifecycle.Assign(c.UserContext(), c.Params("id"), req.UserID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation assigned",
		Results: conversation,
	})
}

func (h *Conversation) Messages(c *fiber.Ctx) error {
	messages, err := h.Ingest.GetOptimizedPage(
		c.UserContext(),
		c.Params("id"),
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
		!c.QueryBool("fresh", false),
	)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Messages retrieved",
		Results: messages,
	})
}

type replyRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

func (r replyRequest) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

// Reply stores a human-operator outbound message. Delivery to the
// gateway is out of scope here; the gateway polls or pushes
// separately.
func (h *Conversation) Reply(c *fiber.Ctx) error {
	var req replyRequest
	utils.PanicIfNeeded(c.BodyParser(&req))
	utils.PanicIfNeeded(req.validate())

	message, err := h.Ingest.SaveManualReply(
		c.UserContext(),
		c.Params("tenantID"),
		c.Params("id"),
		req.UserID,
		req.Content,
	)
	utils.PanicIfNeeded(err)

	if h.Hub != nil {
		h.Hub.Broadcast(c.Params("id"), "message_received", map[string]any{
			"messageId": message.ID,
			"fromMe":    true,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Reply stored",
		Results: message,
	})
}
