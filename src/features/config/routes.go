package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the config feature.
func RegisterRoutes(app *fiber.App, manager *Manager) {
	handler := NewHandler(manager)

	app.Get("/config", handler.GetConfig)
	app.Get("/config/yaml", handler.GetConfigYAML)
}
