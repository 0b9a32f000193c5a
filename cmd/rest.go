package cmd

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wappanel/wappanel/core/config"
	"github.com/wappanel/wappanel/pkg/utils"
	"github.com/wappanel/wappanel/ui/rest"
	"github.com/wappanel/wappanel/ui/rest/middleware"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the REST API and webhook endpoint",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := config.Global

	app := fiber.New(fiber.Config{
		AppName:                 "WapPanel " + cfg.App.Version,
		DisableStartupMessage:   !cfg.App.Debug,
		ReadTimeout:             30 * time.Second,
		WriteTimeout:            30 * time.Second,
		EnableTrustedProxyCheck: len(cfg.App.TrustedProxies) > 0,
		TrustedProxies:          cfg.App.TrustedProxies,
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.App.CorsAllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: time.Minute,
	}))
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	base := app.Group(cfg.App.BasePath)

	// Gateway callbacks authenticate by tenant path segment, not basic
	// auth, so the webhook route stays outside the protected group.
	rest.InitRestWebhook(base, orchestrator)

	api := base.Group("/")
	if len(cfg.App.BasicAuth) > 0 {
		api.Use(basicauth.New(basicauth.Config{
			Users: parseBasicAuth(cfg.App.BasicAuth),
		}))
	}

	rest.InitRestTenant(api, tenantRepo, clientCache, genericCache)
	rest.InitRestAgent(api, agentRepo)
	rest.InitRestInstance(api, instanceRepo)
	rest.InitRestConversation(api, lifecycle, conversationRepo, messageIngest, hub)
	rest.InitRestHealth(base, db)
	rest.InitRestStats(api, genericCache, clientCache, workerPool)

	hub.RegisterRoutes(base)

	base.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(utils.ResponseData{
			Status:  200,
			Code:    "SUCCESS",
			Message: "WapPanel " + cfg.App.Version,
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logrus.Info("[APP] Shutdown signal received")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[APP] Server shutdown: %v", err)
		}
		StopApp()
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalf("[APP] Server failed: %v", err)
	}
}
