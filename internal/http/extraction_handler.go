package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"log/slog"

	"shoplens/internal/events"
	"shoplens/internal/extraction"
	"shoplens/internal/metrics"
)

type extractionRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// TriggerExtractionHandler serves POST /api/v1/tenants/:tenantID/extraction
//
// A partially failed run still answers 200: the per-category status map is the
// caller's signal to retry individual categories.
func (h *Handler) TriggerExtractionHandler(c *fiber.Ctx) error {
	tenant, err := h.requireTenant(c)
	if tenant == nil {
		return err
	}

	var req extractionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "INVALID_REQUEST",
		})
	}

	from, fromErr := parseDate(req.StartDate)
	to, toErr := parseDate(req.EndDate)
	if fromErr != nil || toErr != nil || from.IsZero() || to.IsZero() || to.Before(from) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid extraction window",
			"code":  "INVALID_WINDOW",
		})
	}

	store := events.NewStore(h.db())
	timeout := time.Duration(h.cfg.ExtractionTimeoutSeconds) * time.Second
	pipeline := extraction.NewPipeline(store, h.source, h.logger, timeout)

	report, err := pipeline.Extract(c.UserContext(), tenant.ID, from, to)
	if err != nil {
		h.logger.Error("Extraction failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Extraction failed",
			"code":  "EXTRACTION_ERROR",
		})
	}

	metrics.ExtractionRunsTotal.WithLabelValues(report.Run.Status).Inc()
	for category, status := range report.Statuses {
		metrics.ExtractionCategoriesTotal.WithLabelValues(string(category), status.Status).Inc()
		if status.Status == extraction.CategoryOK {
			metrics.EventsWrittenTotal.WithLabelValues(string(category)).Add(float64(status.Events))
		}
	}

	return c.JSON(report)
}
