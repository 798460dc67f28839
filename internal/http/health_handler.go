package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler serves GET /health
func (h *Handler) HealthHandler(c *fiber.Ctx) error {
	if h.db() == nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"app":    h.cfg.AppName,
	})
}
