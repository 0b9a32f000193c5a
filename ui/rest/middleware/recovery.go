package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	pkgError "github.com/wappanel/wappanel/pkg/error"
	"github.com/wappanel/wappanel/pkg/utils"
)

func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err != nil {
				res := utils.ResponseData{
					Status:  500,
					Code:    "INTERNAL_SERVER_ERROR",
					Message: fmt.Sprintf("%v", err),
				}

				logrus.Errorf("Panic recovered in middleware: %v", err)

				if typed, ok := err.(pkgError.GenericError); ok {
					res.Status = typed.StatusCode()
					res.Code = typed.ErrCode()
					res.Message = typed.Error()
				}

				_ = ctx.Status(res.Status).JSON(res)
			}
		}()

		return ctx.Next()
	}
}
