package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"log/slog"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/extraction"
	"shoplens/internal/http"
)

// MountRoutes wires the API surface onto the fiber app.
func MountRoutes(app *fiber.App, dbManager *database.DBManager, source extraction.DataSource, logger *slog.Logger) {
	cfg := config.GetConfig()
	handler := http.NewHandler(dbManager, source, logger, cfg)

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST,GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", handler.HealthHandler)

	api := app.Group("/api/v1")
	tenantGroup := api.Group("/tenants/:tenantID")

	insightGroup := tenantGroup.Group("/insights")
	insightGroup.Get("/abandoned-carts", handler.AbandonedCartsHandler)
	insightGroup.Get("/bounces", handler.BouncesHandler)
	insightGroup.Get("/repeat-visitors", handler.RepeatVisitorsHandler)
	insightGroup.Get("/search-issues", handler.SearchIssuesHandler)

	tenantGroup.Get("/dashboard", handler.DashboardHandler)
	tenantGroup.Post("/extraction", handler.TriggerExtractionHandler)
}
