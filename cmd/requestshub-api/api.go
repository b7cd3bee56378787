// Package main provides the requestshub API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/fastorc/requestshub/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	starter  web.LifecycleStarter
	audit    web.AuditReader
	checks   map[string]web.HealthCheck
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	starter web.LifecycleStarter,
	auditReader web.AuditReader,
	checks map[string]web.HealthCheck,
) *API {
	return &API{
		logger:   logger,
		starter:  starter,
		audit:    auditReader,
		checks:   checks,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.starter, a.audit, a.validate, a.checks)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("requestshub API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
