package dashboard

import (
	"fmt"
	"math"

	"gorm.io/gorm"

	"shoplens/internal/events"
)

// Metrics is the scalar metric family shown on the dashboard overview and
// reused, per bucket and per location, by the other rollups.
type Metrics struct {
	Revenue        float64 `json:"revenue"`
	Purchases      int64   `json:"purchases"`
	Visitors       int64   `json:"visitors"`
	Users          int64   `json:"users"`
	AbandonedCarts int64   `json:"abandoned_carts"`
	Searches       int64   `json:"searches"`
	FailedSearches int64   `json:"failed_searches"`
	RepeatVisitors int64   `json:"repeat_visitors"`
	ConversionRate float64 `json:"conversion_rate"`
}

// conversionRate is purchases over visitors as a percentage, rounded to two
// decimals. Zero visitors yields zero, never NaN or a division error.
func conversionRate(purchases, visitors int64) float64 {
	if visitors == 0 {
		return 0
	}
	rate := float64(purchases) / float64(visitors) * 100
	return math.Round(rate*100) / 100
}

// Overview computes each metric family independently over the scope and
// combines them by plain arithmetic at the end.
func Overview(db *gorm.DB, scope events.Scope) (Metrics, error) {
	var m Metrics
	if scope.EmptyWindow() {
		return m, nil
	}

	scopeSQL, scopeArgs := scope.Fragment("e")

	var sales struct {
		Revenue   float64
		Purchases int64
	}
	salesQuery := fmt.Sprintf(`
    SELECT COALESCE(SUM(e.revenue), 0) AS revenue, COUNT(*) AS purchases
    FROM events e
    WHERE %s AND e.event_type = ?`, scopeSQL)
	if err := db.Raw(salesQuery, append(append([]interface{}{}, scopeArgs...), events.EventTypePurchase)...).
		Scan(&sales).Error; err != nil {
		return m, fmt.Errorf("error computing sales metrics: %w", err)
	}
	m.Revenue = sales.Revenue
	m.Purchases = sales.Purchases

	visitorsQuery := fmt.Sprintf(`
    SELECT COUNT(DISTINCT e.session_id) FROM events e WHERE %s`, scopeSQL)
	if err := db.Raw(visitorsQuery, scopeArgs...).Scan(&m.Visitors).Error; err != nil {
		return m, fmt.Errorf("error counting visitors: %w", err)
	}

	usersQuery := fmt.Sprintf(`
    SELECT COUNT(DISTINCT e.user_id) FROM events e WHERE %s AND e.user_id <> ''`, scopeSQL)
	if err := db.Raw(usersQuery, scopeArgs...).Scan(&m.Users).Error; err != nil {
		return m, fmt.Errorf("error counting users: %w", err)
	}

	cartsQuery := fmt.Sprintf(`
    SELECT COUNT(DISTINCT e.session_id)
    FROM events e
    WHERE %s AND e.event_type = ?
    AND NOT EXISTS (
        SELECT 1 FROM events p
        WHERE p.tenant_id = e.tenant_id
        AND p.session_id = e.session_id
        AND p.event_type = ?
    )`, scopeSQL)
	cartArgs := append(append([]interface{}{}, scopeArgs...), events.EventTypeAddToCart, events.EventTypePurchase)
	if err := db.Raw(cartsQuery, cartArgs...).Scan(&m.AbandonedCarts).Error; err != nil {
		return m, fmt.Errorf("error counting abandoned carts: %w", err)
	}

	searchQuery := fmt.Sprintf(`
    SELECT COUNT(*) FROM events e WHERE %s AND e.event_type = ?`, scopeSQL)
	if err := db.Raw(searchQuery, append(append([]interface{}{}, scopeArgs...), events.EventTypeSearch)...).
		Scan(&m.Searches).Error; err != nil {
		return m, fmt.Errorf("error counting searches: %w", err)
	}
	if err := db.Raw(searchQuery, append(append([]interface{}{}, scopeArgs...), events.EventTypeFailedSearch)...).
		Scan(&m.FailedSearches).Error; err != nil {
		return m, fmt.Errorf("error counting failed searches: %w", err)
	}

	repeatQuery := fmt.Sprintf(`
    SELECT COUNT(*) FROM (
        SELECT user_id FROM (
            SELECT e.user_id AS user_id
            FROM events e
            WHERE %s
            AND e.event_type = ?
            AND e.user_id <> ''
            GROUP BY e.session_id, e.user_id
            HAVING COUNT(DISTINCT e.page_url) > 2
        ) active
        GROUP BY user_id
        HAVING COUNT(*) > 1
    ) repeats`, scopeSQL)
	repeatArgs := append(append([]interface{}{}, scopeArgs...), events.EventTypePageView)
	if err := db.Raw(repeatQuery, repeatArgs...).Scan(&m.RepeatVisitors).Error; err != nil {
		return m, fmt.Errorf("error counting repeat visitors: %w", err)
	}

	m.ConversionRate = conversionRate(m.Purchases, m.Visitors)
	return m, nil
}
