package history

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"medio/src/media"
)

// Handler is the handler for the history feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the history feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetHistory returns the most recent pipeline outcomes as JSON.
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	entries, err := h.service.Recent(c.Context(), limit)
	if err != nil {
		slog.Error("Failed to load history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load history",
		})
	}

	if entries == nil {
		entries = []media.HistoryEntry{}
	}
	return c.JSON(entries)
}
