// Package main provides the Docuflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/docuflow/docuflow/pkg/engine"
	"github.com/docuflow/docuflow/pkg/persistence"
	"github.com/docuflow/docuflow/pkg/registry"
	"github.com/docuflow/docuflow/pkg/secrets"
	"github.com/docuflow/docuflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *registry.Registry
	engine   *engine.Engine
	box      *secrets.Box
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eng *engine.Engine,
	box *secrets.Box,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		registry: reg,
		engine:   eng,
		box:      box,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.store, a.engine, a.registry, a.validate, a.box)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Docuflow API")
	})

	t := app.Group("/templates")
	t.Get("/", handlers.GetTemplates)
	t.Post("/", handlers.CreateTemplate)
	t.Get("/:id", handlers.GetTemplate)
	t.Patch("/:id", handlers.UpdateTemplate)
	t.Delete("/:id", handlers.DeleteTemplate)
	t.Post("/:id/activate", handlers.ActivateTemplate)
	t.Post("/:id/archive", handlers.ArchiveTemplate)
	t.Post("/:id/duplicate", handlers.DuplicateTemplate)
	t.Get("/:id/statistics", handlers.TemplateStatistics)
	t.Post("/:id/execute", handlers.ExecuteTemplate)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/:id", handlers.GetExecution)
	e.Get("/:id/status", handlers.ExecutionStatus)
	e.Get("/:id/logs", handlers.ExecutionLogs)
	e.Post("/:id/pause", handlers.PauseExecution)
	e.Post("/:id/resume", handlers.ResumeExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)
	e.Post("/:id/retry", handlers.RetryExecution)

	app.Get("/node-types", handlers.GetNodeTypes)
	app.Get("/node-types/:type", handlers.GetNodeType)

	v := app.Group("/variables")
	v.Get("/", handlers.GetVariables)
	v.Post("/", handlers.CreateVariable)
	v.Patch("/:id", handlers.UpdateVariable)
	v.Delete("/:id", handlers.DeleteVariable)

	app.Get("/health", handlers.Health)

	return app
}

func (a *API) Start(port int) error {
	a.logger.Info("starting API server", "port", port)

	return a.App().Listen(":" + strconv.Itoa(port))
}
