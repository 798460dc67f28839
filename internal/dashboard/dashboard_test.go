package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/dashboard"
	"shoplens/internal/testsupport"
)

func TestCompositeAssemblesAllThreeParts(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	tenant := testsupport.CreateTestTenant(t, db, "demo-outfitters")
	testsupport.CreateTestLocation(t, db, tenant.ID, "nyc", "New York")

	purchase := testsupport.Purchase(tenant.ID, "s1", "u1", "tx-1", 150, day)
	purchase.LocationID = "nyc"
	testsupport.InsertEvent(t, db, purchase)

	result, err := dashboard.Composite(context.Background(), db, logger, dashboard.Params{
		TenantID:    tenant.ID,
		From:        day.AddDate(0, 0, -1),
		To:          day.AddDate(0, 0, 1),
		Granularity: dashboard.GranularityDaily,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Metrics.Purchases)
	assert.InDelta(t, 150, result.Metrics.Revenue, 0.001)
	require.Len(t, result.ChartData, 3)
	assert.Equal(t, int64(1), result.ChartData[1].Purchases)
	require.Len(t, result.LocationStats, 1)
	assert.Equal(t, "nyc", result.LocationStats[0].LocationID)
}

func TestCompositeEmptyTenantStillWellFormed(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	result, err := dashboard.Composite(context.Background(), db, logger, dashboard.Params{
		TenantID:    77,
		Granularity: dashboard.GranularityDaily,
	})
	require.NoError(t, err)

	assert.Equal(t, dashboard.Metrics{}, result.Metrics)
	assert.NotNil(t, result.ChartData)
	assert.NotNil(t, result.LocationStats)
	assert.Empty(t, result.ChartData)
}

func TestCompositeCancelledContext(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := dashboard.Composite(ctx, db, logger, dashboard.Params{TenantID: 1})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
