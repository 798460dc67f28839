package jobs

import (
	"context"
	"time"

	"log/slog"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/events"
	"shoplens/internal/extraction"
	"shoplens/internal/metrics"
	"shoplens/internal/tenants"
)

// ExtractionJob runs the extraction pipeline for every active tenant over
// the configured trailing window.
type ExtractionJob struct {
	dbManager *database.DBManager
	source    extraction.DataSource
	logger    *slog.Logger
	cfg       *config.Config
}

func NewExtractionJob(dbManager *database.DBManager, source extraction.DataSource, logger *slog.Logger, cfg *config.Config) *ExtractionJob {
	return &ExtractionJob{
		dbManager: dbManager,
		source:    source,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run extracts the trailing window for each active tenant. One tenant's
// failure does not stop the others; per-category partial failures surface in
// the persisted run record and in the metrics.
func (j *ExtractionJob) Run() error {
	db := j.dbManager.GetConnection()

	activeTenants, err := tenants.GetActiveTenants(db)
	if err != nil {
		j.logger.Error("Failed to list active tenants", slog.Any("error", err))
		return err
	}
	if len(activeTenants) == 0 {
		j.logger.Debug("No active tenants to extract")
		return nil
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -j.cfg.ExtractionWindowDays)
	timeout := time.Duration(j.cfg.ExtractionTimeoutSeconds) * time.Second

	store := events.NewStore(db)
	pipeline := extraction.NewPipeline(store, j.source, j.logger, timeout)

	for _, tenant := range activeTenants {
		report, err := pipeline.Extract(context.Background(), tenant.ID, from, to)
		if err != nil {
			j.logger.Error("Extraction failed for tenant",
				slog.Uint64("tenantID", uint64(tenant.ID)),
				slog.String("tenant", tenant.Slug),
				slog.Any("error", err))
			continue
		}

		metrics.ExtractionRunsTotal.WithLabelValues(report.Run.Status).Inc()
		for category, status := range report.Statuses {
			metrics.ExtractionCategoriesTotal.WithLabelValues(string(category), status.Status).Inc()
			if status.Status == extraction.CategoryOK {
				metrics.EventsWrittenTotal.WithLabelValues(string(category)).Add(float64(status.Events))
			}
		}
	}

	return nil
}
