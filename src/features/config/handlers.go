package config

import (
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	manager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// GetConfig returns the redacted configuration as JSON.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(h.manager.GetJSON())
}

// GetConfigYAML returns the redacted configuration as YAML.
func (h *Handler) GetConfigYAML(c *fiber.Ctx) error {
	return c.SendString(h.manager.GetYAML())
}
