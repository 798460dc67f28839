package dashboard

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"shoplens/internal/events"
)

// TimeSeriesPoint is one calendar bucket of the dashboard chart. Weekly
// labels use ISO week numbering (2026-W05); monthly labels normalize to the
// month (2026-02); daily labels are the date itself.
//
// The point carries only per-bucket metrics. Distinct user and
// repeat-visitor counts are range-level: a returning user's sessions land in
// different buckets, so a per-bucket value would double-count across the
// series. Those two live on Metrics and LocationStat instead.
type TimeSeriesPoint struct {
	Label          string    `json:"label"`
	Date           time.Time `json:"date"`
	Revenue        float64   `json:"revenue"`
	Purchases      int64     `json:"purchases"`
	Visitors       int64     `json:"visitors"`
	AbandonedCarts int64     `json:"abandoned_carts"`
	Searches       int64     `json:"searches"`
	FailedSearches int64     `json:"failed_searches"`
	ConversionRate float64   `json:"conversion_rate"`
}

type bucketRow struct {
	Bucket string
	Count  int64
	Value  float64
}

// TimeSeries computes each metric independently per bucket, then left-merges
// the per-metric rollups onto the generated calendar sequence. Empty buckets
// appear with zero metrics.
func TimeSeries(db *gorm.DB, scope events.Scope, granularity Granularity) ([]TimeSeriesPoint, error) {
	if scope.EmptyWindow() {
		return []TimeSeriesPoint{}, nil
	}

	from, to, err := seriesRange(db, scope)
	if err != nil {
		return nil, err
	}
	buckets := GenerateBuckets(granularity, from, to)
	if len(buckets) == 0 {
		return []TimeSeriesPoint{}, nil
	}

	scopeSQL, scopeArgs := scope.Fragment("e")
	expr := groupExpression(granularity, "e.event_date")

	sales, err := groupedRows(db, fmt.Sprintf(`
    SELECT %s AS bucket, COUNT(*) AS count, COALESCE(SUM(e.revenue), 0) AS value
    FROM events e
    WHERE %s AND e.event_type = ?
    GROUP BY bucket`, expr, scopeSQL),
		append(append([]interface{}{}, scopeArgs...), events.EventTypePurchase))
	if err != nil {
		return nil, fmt.Errorf("error bucketing sales: %w", err)
	}

	visitors, err := groupedRows(db, fmt.Sprintf(`
    SELECT %s AS bucket, COUNT(DISTINCT e.session_id) AS count
    FROM events e
    WHERE %s
    GROUP BY bucket`, expr, scopeSQL),
		append([]interface{}{}, scopeArgs...))
	if err != nil {
		return nil, fmt.Errorf("error bucketing visitors: %w", err)
	}

	carts, err := groupedRows(db, fmt.Sprintf(`
    SELECT %s AS bucket, COUNT(DISTINCT e.session_id) AS count
    FROM events e
    WHERE %s AND e.event_type = ?
    AND NOT EXISTS (
        SELECT 1 FROM events p
        WHERE p.tenant_id = e.tenant_id
        AND p.session_id = e.session_id
        AND p.event_type = ?
    )
    GROUP BY bucket`, expr, scopeSQL),
		append(append([]interface{}{}, scopeArgs...), events.EventTypeAddToCart, events.EventTypePurchase))
	if err != nil {
		return nil, fmt.Errorf("error bucketing abandoned carts: %w", err)
	}

	countQuery := fmt.Sprintf(`
    SELECT %s AS bucket, COUNT(*) AS count
    FROM events e
    WHERE %s AND e.event_type = ?
    GROUP BY bucket`, expr, scopeSQL)
	searches, err := groupedRows(db, countQuery,
		append(append([]interface{}{}, scopeArgs...), events.EventTypeSearch))
	if err != nil {
		return nil, fmt.Errorf("error bucketing searches: %w", err)
	}
	failed, err := groupedRows(db, countQuery,
		append(append([]interface{}{}, scopeArgs...), events.EventTypeFailedSearch))
	if err != nil {
		return nil, fmt.Errorf("error bucketing failed searches: %w", err)
	}

	points := make([]TimeSeriesPoint, len(buckets))
	for i, bucket := range buckets {
		point := TimeSeriesPoint{
			Label: bucket.Label,
			Date:  bucket.Start,
		}
		if row, ok := sales[bucket.Key]; ok {
			point.Purchases = row.Count
			point.Revenue = row.Value
		}
		if row, ok := visitors[bucket.Key]; ok {
			point.Visitors = row.Count
		}
		if row, ok := carts[bucket.Key]; ok {
			point.AbandonedCarts = row.Count
		}
		if row, ok := searches[bucket.Key]; ok {
			point.Searches = row.Count
		}
		if row, ok := failed[bucket.Key]; ok {
			point.FailedSearches = row.Count
		}
		point.ConversionRate = conversionRate(point.Purchases, point.Visitors)
		points[i] = point
	}
	return points, nil
}

func groupedRows(db *gorm.DB, query string, args []interface{}) (map[string]bucketRow, error) {
	var rows []bucketRow
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]bucketRow, len(rows))
	for _, row := range rows {
		result[row.Bucket] = row
	}
	return result, nil
}

// seriesRange fills unbounded range ends from the scoped data's own extent,
// so an open-ended request still yields a finite calendar.
func seriesRange(db *gorm.DB, scope events.Scope) (time.Time, time.Time, error) {
	from, to := scope.From, scope.To
	if !from.IsZero() && !to.IsZero() {
		return from, to, nil
	}

	scopeSQL, scopeArgs := scope.Fragment("e")
	var extent struct {
		MinDate string
		MaxDate string
	}
	query := fmt.Sprintf(`
    SELECT MIN(e.event_date) AS min_date, MAX(e.event_date) AS max_date
    FROM events e
    WHERE %s`, scopeSQL)
	if err := db.Raw(query, scopeArgs...).Scan(&extent).Error; err != nil {
		return from, to, fmt.Errorf("error finding series range: %w", err)
	}
	if extent.MinDate == "" || extent.MaxDate == "" {
		return time.Time{}, time.Time{}, nil
	}

	if from.IsZero() {
		from = parseEventDate(extent.MinDate)
	}
	if to.IsZero() {
		to = parseEventDate(extent.MaxDate)
	}
	return from, to, nil
}

var eventDateLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseEventDate(value string) time.Time {
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
