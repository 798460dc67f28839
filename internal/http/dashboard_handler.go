package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"log/slog"

	"shoplens/internal/dashboard"
	"shoplens/internal/metrics"
)

// DashboardHandler serves GET /api/v1/tenants/:tenantID/dashboard
func (h *Handler) DashboardHandler(c *fiber.Ctx) error {
	tenant, err := h.requireTenant(c)
	if tenant == nil {
		return err
	}
	queryParams := h.queryParams(c, tenant.ID)

	params := dashboard.Params{
		TenantID:    tenant.ID,
		From:        queryParams.From,
		To:          queryParams.To,
		LocationID:  queryParams.LocationID,
		Granularity: dashboard.ParseGranularity(c.Query("granularity")),
	}

	start := time.Now()
	result, err := dashboard.Composite(c.UserContext(), h.db(), h.logger, params)
	metrics.DashboardDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("Dashboard query failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute dashboard",
			"code":  "QUERY_ERROR",
		})
	}
	return c.JSON(result)
}
