package dashboard

import (
	"fmt"

	"gorm.io/gorm"

	"shoplens/internal/events"
	"shoplens/internal/tenants"
)

// LocationStat is the metric family rolled up for one branch. Every active
// location appears in the result, zero-activity locations included.
type LocationStat struct {
	LocationID string  `json:"location_id"`
	Name       string  `json:"name"`
	Metrics    Metrics `json:"metrics"`
}

type locationRow struct {
	LocationID string
	Count      int64
	Value      float64
}

// LocationStats computes the metric family once per location and merges the
// rollups onto the tenant's full location list. Events carrying a location
// code with no registered location are ignored rather than invented into a
// phantom row.
func LocationStats(db *gorm.DB, scope events.Scope) ([]LocationStat, error) {
	locations, err := tenants.GetLocations(db, scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("error loading locations: %w", err)
	}

	stats := make([]LocationStat, len(locations))
	byCode := make(map[string]*LocationStat, len(locations))
	for i, location := range locations {
		stats[i] = LocationStat{LocationID: location.Code, Name: location.Name}
		byCode[location.Code] = &stats[i]
	}
	if scope.EmptyWindow() || len(stats) == 0 {
		return stats, nil
	}

	scopeSQL, scopeArgs := scope.Fragment("e")

	sales, err := locationRows(db, fmt.Sprintf(`
    SELECT e.location_id AS location_id, COUNT(*) AS count, COALESCE(SUM(e.revenue), 0) AS value
    FROM events e
    WHERE %s AND e.event_type = ?
    GROUP BY e.location_id`, scopeSQL),
		append(append([]interface{}{}, scopeArgs...), events.EventTypePurchase))
	if err != nil {
		return nil, fmt.Errorf("error rolling up sales by location: %w", err)
	}
	for code, row := range sales {
		if stat, ok := byCode[code]; ok {
			stat.Metrics.Purchases = row.Count
			stat.Metrics.Revenue = row.Value
		}
	}

	visitors, err := locationRows(db, fmt.Sprintf(`
    SELECT e.location_id AS location_id, COUNT(DISTINCT e.session_id) AS count
    FROM events e
    WHERE %s
    GROUP BY e.location_id`, scopeSQL),
		append([]interface{}{}, scopeArgs...))
	if err != nil {
		return nil, fmt.Errorf("error rolling up visitors by location: %w", err)
	}
	for code, row := range visitors {
		if stat, ok := byCode[code]; ok {
			stat.Metrics.Visitors = row.Count
		}
	}

	users, err := locationRows(db, fmt.Sprintf(`
    SELECT e.location_id AS location_id, COUNT(DISTINCT e.user_id) AS count
    FROM events e
    WHERE %s AND e.user_id <> ''
    GROUP BY e.location_id`, scopeSQL),
		append([]interface{}{}, scopeArgs...))
	if err != nil {
		return nil, fmt.Errorf("error rolling up users by location: %w", err)
	}
	for code, row := range users {
		if stat, ok := byCode[code]; ok {
			stat.Metrics.Users = row.Count
		}
	}

	repeats, err := locationRows(db, fmt.Sprintf(`
    SELECT location_id, COUNT(*) AS count FROM (
        SELECT location_id, user_id FROM (
            SELECT e.location_id AS location_id, e.user_id AS user_id
            FROM events e
            WHERE %s
            AND e.event_type = ?
            AND e.user_id <> ''
            GROUP BY e.location_id, e.session_id, e.user_id
            HAVING COUNT(DISTINCT e.page_url) > 2
        ) active
        GROUP BY location_id, user_id
        HAVING COUNT(*) > 1
    ) repeat_users
    GROUP BY location_id`, scopeSQL),
		append(append([]interface{}{}, scopeArgs...), events.EventTypePageView))
	if err != nil {
		return nil, fmt.Errorf("error rolling up repeat visitors by location: %w", err)
	}
	for code, row := range repeats {
		if stat, ok := byCode[code]; ok {
			stat.Metrics.RepeatVisitors = row.Count
		}
	}

	carts, err := locationRows(db, fmt.Sprintf(`
    SELECT e.location_id AS location_id, COUNT(DISTINCT e.session_id) AS count
    FROM events e
    WHERE %s AND e.event_type = ?
    AND NOT EXISTS (
        SELECT 1 FROM events p
        WHERE p.tenant_id = e.tenant_id
        AND p.session_id = e.session_id
        AND p.event_type = ?
    )
    GROUP BY e.location_id`, scopeSQL),
		append(append([]interface{}{}, scopeArgs...), events.EventTypeAddToCart, events.EventTypePurchase))
	if err != nil {
		return nil, fmt.Errorf("error rolling up abandoned carts by location: %w", err)
	}
	for code, row := range carts {
		if stat, ok := byCode[code]; ok {
			stat.Metrics.AbandonedCarts = row.Count
		}
	}

	countQuery := fmt.Sprintf(`
    SELECT e.location_id AS location_id, COUNT(*) AS count
    FROM events e
    WHERE %s AND e.event_type = ?
    GROUP BY e.location_id`, scopeSQL)
	searches, err := locationRows(db, countQuery,
		append(append([]interface{}{}, scopeArgs...), events.EventTypeSearch))
	if err != nil {
		return nil, fmt.Errorf("error rolling up searches by location: %w", err)
	}
	for code, row := range searches {
		if stat, ok := byCode[code]; ok {
			stat.Metrics.Searches = row.Count
		}
	}
	failed, err := locationRows(db, countQuery,
		append(append([]interface{}{}, scopeArgs...), events.EventTypeFailedSearch))
	if err != nil {
		return nil, fmt.Errorf("error rolling up failed searches by location: %w", err)
	}
	for code, row := range failed {
		if stat, ok := byCode[code]; ok {
			stat.Metrics.FailedSearches = row.Count
		}
	}

	for i := range stats {
		stats[i].Metrics.ConversionRate = conversionRate(stats[i].Metrics.Purchases, stats[i].Metrics.Visitors)
	}
	return stats, nil
}

func locationRows(db *gorm.DB, query string, args []interface{}) (map[string]locationRow, error) {
	var rows []locationRow
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]locationRow, len(rows))
	for _, row := range rows {
		result[row.LocationID] = row
	}
	return result, nil
}
