// Package hosting serves the HTTP surface: health, status, history,
// jobs, config and metrics.
package hosting

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"medio/src/features/config"
	"medio/src/features/history"
	"medio/src/features/jobs"
	"medio/src/features/metrics"
	"medio/src/features/pipeline"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server. historyService and thumbsDir are
// optional; their routes are omitted when absent.
func NewServer(
	cfg *config.Manager,
	supervisor *pipeline.Supervisor,
	jobService *jobs.Service,
	historyService *history.Service,
	metricSet *metrics.Set,
	thumbsDir string,
) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "Medio",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		if !supervisor.Healthy() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("DEGRADED")
		}
		return c.SendString("OK")
	})
	app.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(supervisor.Snapshot())
	})

	config.RegisterRoutes(app, cfg)
	metrics.RegisterRoutes(app, metricSet)
	jobs.RegisterRoutes(app, jobService)
	if historyService != nil {
		history.RegisterRoutes(app, historyService)
	}
	if thumbsDir != "" {
		app.Static("/thumbnails", thumbsDir)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
