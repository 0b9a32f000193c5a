package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wappanel/wappanel/pkg/utils"
	"gorm.io/gorm"
)

type Health struct {
	DB *gorm.DB
}

func InitRestHealth(app fiber.Router, db *gorm.DB) Health {
	handler := Health{DB: db}
	app.Get("/health", handler.Status)
	return handler
}

func (h *Health) Status(c *fiber.Ctx) error {
	dbStatus := "ok"
	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		dbStatus = "unreachable"
	}

	status := 200
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    "SUCCESS",
		Message: "Health status",
		Results: map[string]string{"database": dbStatus},
	})
}
