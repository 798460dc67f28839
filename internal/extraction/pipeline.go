package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"shoplens/internal/events"
	"shoplens/internal/pkg/async"
)

// Pipeline orchestrates one extraction: fan out over the six categories,
// fan the statuses back in, record the run. One category failing never
// cancels the others; the caller reads the status map and decides whether
// partial success is good enough.
type Pipeline struct {
	store   *events.Store
	source  DataSource
	logger  *slog.Logger
	timeout time.Duration
}

// NewPipeline creates a pipeline. A zero timeout means the caller's context
// is the only deadline.
func NewPipeline(store *events.Store, source DataSource, logger *slog.Logger, timeout time.Duration) *Pipeline {
	return &Pipeline{
		store:   store,
		source:  source,
		logger:  logger,
		timeout: timeout,
	}
}

// Report is the outcome of one extraction run.
type Report struct {
	Run      *Run                               `json:"run"`
	Statuses map[events.Category]CategoryStatus `json:"statuses"`
}

// Extract populates the window [from, to] for one tenant, one worker per
// category. Each category's write replaces its own window, so re-running
// after a partial failure never duplicates the categories that already
// succeeded.
func (p *Pipeline) Extract(ctx context.Context, tenantID uint, from, to time.Time) (*Report, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid extraction window: end %s before start %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	startedAt := time.Now().UTC()
	tasks := make([]async.Task, 0, len(events.Categories))
	for _, category := range events.Categories {
		tasks = append(tasks, async.Task{
			Name: string(category),
			Execute: func() (interface{}, error) {
				return p.extractCategory(ctx, category, tenantID, from, to)
			},
		})
	}

	pool := async.NewPool(len(tasks))
	results := pool.Execute(ctx, tasks)

	statuses := make(map[events.Category]CategoryStatus, len(events.Categories))
	succeeded := 0
	for _, category := range events.Categories {
		result, done := results[string(category)]
		switch {
		case !done:
			p.logger.Warn("Extraction category timed out", slog.String("category", string(category)))
			statuses[category] = CategoryStatus{Status: CategoryTimedOut}
		case result.Err != nil:
			p.logger.Error("Extraction category failed",
				slog.String("category", string(category)), slog.Any("error", result.Err))
			statuses[category] = CategoryStatus{Status: CategoryFailed, Error: result.Err.Error()}
		default:
			count, _ := result.Data.(int)
			statuses[category] = CategoryStatus{Status: CategoryOK, Events: count}
			succeeded++
		}
	}

	run := &Run{
		RunID:      uuid.NewString(),
		TenantID:   tenantID,
		FromDate:   events.DateOf(from),
		ToDate:     events.DateOf(to),
		Status:     runStatus(succeeded, len(events.Categories)),
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if payload, err := json.Marshal(statuses); err == nil {
		run.Categories = events.JSON(payload)
	}

	if err := sqlite.PerformWrite(p.logger, p.store.DB(), func(tx *gorm.DB) error {
		return tx.Create(run).Error
	}); err != nil {
		return nil, fmt.Errorf("failed to record extraction run: %w", err)
	}

	p.logger.Info("Extraction run finished",
		slog.String("runID", run.RunID),
		slog.Uint64("tenantID", uint64(tenantID)),
		slog.String("status", run.Status),
		slog.Int("succeeded", succeeded))

	return &Report{Run: run, Statuses: statuses}, nil
}

func (p *Pipeline) extractCategory(ctx context.Context, category events.Category, tenantID uint, from, to time.Time) (int, error) {
	eventType, ok := events.TypeForCategory(category)
	if !ok {
		return 0, fmt.Errorf("unknown event category %q", category)
	}

	batch, err := p.source.FetchEvents(ctx, category, tenantID, from, to)
	if err != nil {
		return 0, fmt.Errorf("fetching %s events: %w", category, err)
	}

	if err := p.store.ReplaceWindow(p.logger, eventType, tenantID, from, to, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func runStatus(succeeded, total int) string {
	switch succeeded {
	case total:
		return StatusCompleted
	case 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
