package extraction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/events"
	"shoplens/internal/extraction"
	"shoplens/internal/testsupport"
)

// fakeSource serves a fixed batch per category and can be told to fail
// specific ones.
type fakeSource struct {
	batches map[events.Category][]events.Event
	failing map[events.Category]error
}

func (f *fakeSource) FetchEvents(ctx context.Context, category events.Category, tenantID uint, from, to time.Time) ([]events.Event, error) {
	if err, ok := f.failing[category]; ok {
		return nil, err
	}
	return f.batches[category], nil
}

func sourceWithOneEventPerCategory(tenantID uint, at time.Time) *fakeSource {
	batches := make(map[events.Category][]events.Event, len(events.Categories))
	for _, category := range events.Categories {
		eventType, _ := events.TypeForCategory(category)
		batches[category] = []events.Event{{
			TenantID:  tenantID,
			EventType: eventType,
			SessionID: "session-" + string(category),
			EventDate: events.DateOf(at),
			Timestamp: at,
		}}
	}
	return &fakeSource{batches: batches, failing: map[events.Category]error{}}
}

func TestExtractAllCategoriesSucceed(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	store := events.NewStore(db)
	source := sourceWithOneEventPerCategory(1, day)
	pipeline := extraction.NewPipeline(store, source, logger, 0)

	report, err := pipeline.Extract(context.Background(), 1, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, extraction.StatusCompleted, report.Run.Status)
	require.Len(t, report.Statuses, len(events.Categories))
	for category, status := range report.Statuses {
		assert.Equal(t, extraction.CategoryOK, status.Status, "category %s", category)
		assert.Equal(t, 1, status.Events)
	}

	var total int64
	require.NoError(t, db.Model(&events.Event{}).Where("tenant_id = ?", 1).Count(&total).Error)
	assert.Equal(t, int64(len(events.Categories)), total)

	// The run record is persisted with a usable id.
	var run extraction.Run
	require.NoError(t, db.First(&run, "run_id = ?", report.Run.RunID).Error)
	assert.Equal(t, extraction.StatusCompleted, run.Status)
	assert.NotEmpty(t, run.Categories)
}

func TestExtractPartialFailure(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	source := sourceWithOneEventPerCategory(1, day)
	source.failing[events.CategorySearch] = errors.New("upstream export unavailable")

	pipeline := extraction.NewPipeline(events.NewStore(db), source, logger, 0)
	report, err := pipeline.Extract(context.Background(), 1, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err, "a failing category is reported, not escalated")

	assert.Equal(t, extraction.StatusPartial, report.Run.Status)
	assert.Equal(t, extraction.CategoryFailed, report.Statuses[events.CategorySearch].Status)
	assert.Contains(t, report.Statuses[events.CategorySearch].Error, "upstream export unavailable")
	assert.Equal(t, extraction.CategoryOK, report.Statuses[events.CategoryPurchase].Status)

	// The other five categories still landed.
	var total int64
	require.NoError(t, db.Model(&events.Event{}).Where("tenant_id = ?", 1).Count(&total).Error)
	assert.Equal(t, int64(len(events.Categories)-1), total)
}

func TestExtractAllCategoriesFail(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	source := sourceWithOneEventPerCategory(1, day)
	for _, category := range events.Categories {
		source.failing[category] = errors.New("export offline")
	}

	pipeline := extraction.NewPipeline(events.NewStore(db), source, logger, 0)
	report, err := pipeline.Extract(context.Background(), 1, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, extraction.StatusFailed, report.Run.Status)
}

func TestExtractRerunDoesNotDuplicate(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	source := sourceWithOneEventPerCategory(1, day)
	pipeline := extraction.NewPipeline(events.NewStore(db), source, logger, 0)

	from, to := day.AddDate(0, 0, -1), day.AddDate(0, 0, 1)
	_, err := pipeline.Extract(context.Background(), 1, from, to)
	require.NoError(t, err)
	_, err = pipeline.Extract(context.Background(), 1, from, to)
	require.NoError(t, err)

	var total int64
	require.NoError(t, db.Model(&events.Event{}).Where("tenant_id = ?", 1).Count(&total).Error)
	assert.Equal(t, int64(len(events.Categories)), total, "re-running the same window replaces, never appends")
}

func TestExtractRejectsInvertedWindow(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	pipeline := extraction.NewPipeline(events.NewStore(db), sourceWithOneEventPerCategory(1, day), logger, 0)

	_, err := pipeline.Extract(context.Background(), 1, day, day.AddDate(0, 0, -5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid extraction window")
}

func TestExtractLeavesOtherTenantsAlone(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	testsupport.InsertEvent(t, db, testsupport.PageView(2, "other", "", "/home", day))

	pipeline := extraction.NewPipeline(events.NewStore(db), sourceWithOneEventPerCategory(1, day), logger, 0)
	_, err := pipeline.Extract(context.Background(), 1, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err)

	var otherTenant int64
	require.NoError(t, db.Model(&events.Event{}).Where("tenant_id = ?", 2).Count(&otherTenant).Error)
	assert.Equal(t, int64(1), otherTenant)
}
