package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGranularity(t *testing.T) {
	assert.Equal(t, GranularityDaily, ParseGranularity("daily"))
	assert.Equal(t, GranularityWeekly, ParseGranularity("WEEKLY"))
	assert.Equal(t, GranularityMonthly, ParseGranularity("monthly"))
	assert.Equal(t, GranularityDaily, ParseGranularity(""))
	assert.Equal(t, GranularityDaily, ParseGranularity("hourly"))
}

func TestGenerateBucketsDailyIsGapFree(t *testing.T) {
	from := time.Date(2026, 2, 26, 14, 30, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	buckets := GenerateBuckets(GranularityDaily, from, to)
	require.Len(t, buckets, 5)

	assert.Equal(t, "2026-02-26", buckets[0].Key)
	assert.Equal(t, "2026-02-27", buckets[1].Key)
	assert.Equal(t, "2026-02-28", buckets[2].Key)
	assert.Equal(t, "2026-03-01", buckets[3].Key)
	assert.Equal(t, "2026-03-02", buckets[4].Key)
	assert.Equal(t, "2026-02-26", buckets[0].Label)
}

func TestGenerateBucketsWeeklyStartsOnMonday(t *testing.T) {
	// 2026-01-01 is a Thursday; its week starts Monday 2025-12-29.
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC)

	buckets := GenerateBuckets(GranularityWeekly, from, to)
	require.Len(t, buckets, 3)

	assert.Equal(t, "2025-12-29", buckets[0].Key)
	assert.Equal(t, "2026-01-05", buckets[1].Key)
	assert.Equal(t, "2026-01-12", buckets[2].Key)

	// Labels carry the ISO week of the Monday.
	assert.Equal(t, "2026-W01", buckets[0].Label)
	assert.Equal(t, "2026-W02", buckets[1].Label)
}

func TestGenerateBucketsMonthly(t *testing.T) {
	from := time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2027, 1, 3, 0, 0, 0, 0, time.UTC)

	buckets := GenerateBuckets(GranularityMonthly, from, to)
	require.Len(t, buckets, 3)

	assert.Equal(t, "2026-11-01", buckets[0].Key)
	assert.Equal(t, "2026-12-01", buckets[1].Key)
	assert.Equal(t, "2027-01-01", buckets[2].Key)
	assert.Equal(t, "2026-11", buckets[0].Label)
	assert.Equal(t, "2027-01", buckets[2].Label)
}

func TestGenerateBucketsDegenerateRanges(t *testing.T) {
	day := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	single := GenerateBuckets(GranularityDaily, day, day)
	require.Len(t, single, 1)
	assert.Equal(t, "2026-06-01", single[0].Key)

	assert.Empty(t, GenerateBuckets(GranularityDaily, day, day.AddDate(0, 0, -1)))
	assert.Empty(t, GenerateBuckets(GranularityDaily, time.Time{}, day))
}

func TestGenerateBucketsCapped(t *testing.T) {
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	buckets := GenerateBuckets(GranularityDaily, from, to)
	assert.Len(t, buckets, maxBuckets)
}
