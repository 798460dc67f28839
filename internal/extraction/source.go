package extraction

import (
	"context"
	"time"

	"shoplens/internal/events"
)

// DataSource is the external system extraction pulls from, one call per
// event category. Implementations must honor the context: a cancelled fetch
// should return promptly with the context's error.
type DataSource interface {
	FetchEvents(ctx context.Context, category events.Category, tenantID uint, from, to time.Time) ([]events.Event, error)
}
