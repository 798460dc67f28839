// Package http exposes the insight, dashboard, and extraction query
// operations over fiber.
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"log/slog"
	"gorm.io/gorm"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/extraction"
	"shoplens/internal/insights"
	"shoplens/internal/tenants"
)

const dateLayout = "2006-01-02"

// Handler carries the shared dependencies of every API endpoint.
type Handler struct {
	dbManager *database.DBManager
	source    extraction.DataSource
	logger    *slog.Logger
	cfg       *config.Config
}

func NewHandler(dbManager *database.DBManager, source extraction.DataSource, logger *slog.Logger, cfg *config.Config) *Handler {
	return &Handler{
		dbManager: dbManager,
		source:    source,
		logger:    logger,
		cfg:       cfg,
	}
}

func (h *Handler) db() *gorm.DB {
	return h.dbManager.GetConnection()
}

// requireTenant resolves and validates the tenant before any query runs.
// An unknown or inactive tenant is the one hard rejection in the API; every
// other odd input degrades to an empty result instead.
func (h *Handler) requireTenant(c *fiber.Ctx) (*tenants.Tenant, error) {
	tenantID, err := strconv.ParseUint(c.Params("tenantID"), 10, 32)
	if err != nil {
		return nil, c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid tenant id",
			"code":  "INVALID_TENANT",
		})
	}

	tenant, err := tenants.RequireActiveTenant(h.db(), uint(tenantID))
	if err != nil {
		var notFound *tenants.TenantNotFoundError
		if errors.As(err, &notFound) {
			return nil, c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Tenant not found",
				"code":  "TENANT_NOT_FOUND",
			})
		}
		var inactive *tenants.TenantInactiveError
		if errors.As(err, &inactive) {
			return nil, c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error": "Tenant is inactive",
				"code":  "TENANT_INACTIVE",
			})
		}

		h.logger.Error("Failed to resolve tenant", slog.Any("error", err))
		return nil, c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve tenant",
			"code":  "TENANT_LOOKUP_ERROR",
		})
	}
	return tenant, nil
}

// queryParams reads the uniform query parameter set. Unparseable dates
// collapse to an empty window rather than a rejection, matching how the
// algorithms treat an inverted range.
func (h *Handler) queryParams(c *fiber.Ctx, tenantID uint) insights.QueryParams {
	params := insights.QueryParams{
		TenantID:         tenantID,
		LocationID:       c.Query("location_id"),
		Page:             c.QueryInt("page", insights.DefaultPage),
		Limit:            c.QueryInt("limit", h.cfg.DefaultPageLimit),
		SortField:        c.Query("sort_field"),
		SortOrder:        c.Query("sort_order"),
		Query:            c.Query("query"),
		IssueType:        c.Query("issue_type"),
		IncludeConverted: c.QueryBool("include_converted", false),
	}

	from, fromErr := parseDate(c.Query("start_date"))
	to, toErr := parseDate(c.Query("end_date"))
	if fromErr != nil || toErr != nil {
		params.From = time.Unix(1, 0).UTC()
		params.To = time.Unix(0, 0).UTC()
	} else {
		params.From = from
		params.To = to
	}

	return params.Normalize(h.cfg.MaxPageLimit)
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}
