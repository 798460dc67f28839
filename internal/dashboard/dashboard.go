package dashboard

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"shoplens/internal/events"
	"shoplens/internal/pkg/async"
)

// Params selects what the composite dashboard covers.
type Params struct {
	TenantID    uint
	From        time.Time
	To          time.Time
	LocationID  string
	Granularity Granularity
}

func (p Params) scope() events.Scope {
	return events.Scope{
		TenantID:   p.TenantID,
		From:       p.From,
		To:         p.To,
		LocationID: p.LocationID,
	}
}

// Dashboard is the composite response: overview scalars, the bucketed chart
// series, and the per-location rollups.
type Dashboard struct {
	Metrics       Metrics           `json:"metrics"`
	ChartData     []TimeSeriesPoint `json:"chartData"`
	LocationStats []LocationStat    `json:"locationStats"`
}

// Composite runs the three dashboard sub-queries concurrently. They share no
// data, so their results merge only here at assembly time.
func Composite(ctx context.Context, db *gorm.DB, logger *slog.Logger, params Params) (Dashboard, error) {
	scope := params.scope()

	tasks := []async.Task{
		{
			Name: "overview",
			Execute: func() (interface{}, error) {
				return Overview(db, scope)
			},
		},
		{
			Name: "timeseries",
			Execute: func() (interface{}, error) {
				return TimeSeries(db, scope, params.Granularity)
			},
		},
		{
			Name: "locations",
			Execute: func() (interface{}, error) {
				return LocationStats(db, scope)
			},
		},
	}

	pool := async.NewPool(len(tasks))
	results := pool.Execute(ctx, tasks)

	dashboard := Dashboard{
		ChartData:     []TimeSeriesPoint{},
		LocationStats: []LocationStat{},
	}

	for _, task := range tasks {
		result, ok := results[task.Name]
		if !ok {
			return dashboard, fmt.Errorf("dashboard query %s did not complete: %w", task.Name, ctx.Err())
		}
		if result.Err != nil {
			logger.Error("Dashboard query failed", slog.String("query", task.Name), slog.Any("error", result.Err))
			return dashboard, result.Err
		}
	}

	if metrics, ok := results["overview"].Data.(Metrics); ok {
		dashboard.Metrics = metrics
	}
	if points, ok := results["timeseries"].Data.([]TimeSeriesPoint); ok && points != nil {
		dashboard.ChartData = points
	}
	if stats, ok := results["locations"].Data.([]LocationStat); ok && stats != nil {
		dashboard.LocationStats = stats
	}
	return dashboard, nil
}
