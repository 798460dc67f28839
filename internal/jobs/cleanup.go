package jobs

import (
	"time"

	"log/slog"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/extraction"
)

// CleanupJob prunes extraction run records past the retention period.
type CleanupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes old run records in batches to keep write locks short.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.RunRetentionDays
	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	var countToDelete int64
	if err := db.Model(&extraction.Run{}).
		Where("created_at < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old extraction runs", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old extraction runs to clean up")
		return nil
	}

	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("created_at < ?", cutoffDate).
			Limit(batchSize).
			Delete(&extraction.Run{})

		if result.Error != nil {
			j.logger.Error("Failed to delete old extraction runs",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up old extraction runs",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
