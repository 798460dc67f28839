package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"log/slog"

	"shoplens/internal/insights"
	"shoplens/internal/metrics"
)

// AbandonedCartsHandler serves GET /api/v1/tenants/:tenantID/insights/abandoned-carts
func (h *Handler) AbandonedCartsHandler(c *fiber.Ctx) error {
	tenant, err := h.requireTenant(c)
	if tenant == nil {
		return err
	}
	params := h.queryParams(c, tenant.ID)

	start := time.Now()
	result, err := insights.AbandonedCarts(h.db(), h.logger, params)
	metrics.ObserveInsight("abandoned_carts", start, err)
	if err != nil {
		h.logger.Error("Abandoned cart query failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute abandoned carts",
			"code":  "QUERY_ERROR",
		})
	}
	return c.JSON(result)
}

// BouncesHandler serves GET /api/v1/tenants/:tenantID/insights/bounces
func (h *Handler) BouncesHandler(c *fiber.Ctx) error {
	tenant, err := h.requireTenant(c)
	if tenant == nil {
		return err
	}
	params := h.queryParams(c, tenant.ID)

	start := time.Now()
	result, err := insights.Bounces(h.db(), h.logger, params)
	metrics.ObserveInsight("bounces", start, err)
	if err != nil {
		h.logger.Error("Bounce query failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute bounce report",
			"code":  "QUERY_ERROR",
		})
	}
	return c.JSON(result)
}

// RepeatVisitorsHandler serves GET /api/v1/tenants/:tenantID/insights/repeat-visitors
func (h *Handler) RepeatVisitorsHandler(c *fiber.Ctx) error {
	tenant, err := h.requireTenant(c)
	if tenant == nil {
		return err
	}
	params := h.queryParams(c, tenant.ID)

	start := time.Now()
	result, err := insights.RepeatVisitors(h.db(), h.logger, params)
	metrics.ObserveInsight("repeat_visitors", start, err)
	if err != nil {
		h.logger.Error("Repeat visitor query failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute repeat visitors",
			"code":  "QUERY_ERROR",
		})
	}
	return c.JSON(result)
}

// SearchIssuesHandler serves GET /api/v1/tenants/:tenantID/insights/search-issues
func (h *Handler) SearchIssuesHandler(c *fiber.Ctx) error {
	tenant, err := h.requireTenant(c)
	if tenant == nil {
		return err
	}
	params := h.queryParams(c, tenant.ID)

	start := time.Now()
	result, err := insights.SearchIssues(h.db(), h.logger, params)
	metrics.ObserveInsight("search_issues", start, err)
	if err != nil {
		h.logger.Error("Search issue query failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute search issues",
			"code":  "QUERY_ERROR",
		})
	}
	return c.JSON(result)
}
