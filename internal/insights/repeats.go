package insights

import (
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"shoplens/internal/customers"
	"shoplens/internal/events"
)

// ViewedProduct is one distinct product a visitor looked at during a session.
type ViewedProduct struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
}

// RepeatVisitorSession is one qualifying session of a repeat visitor. A user
// with three qualifying sessions produces three rows, one per session, each
// carrying the shared per-user session count.
type RepeatVisitorSession struct {
	SessionID     string              `json:"session_id"`
	UserID        string              `json:"user_id"`
	LastActivity  time.Time           `json:"last_activity"`
	LocationID    string              `json:"location_id,omitempty"`
	DistinctPages int64               `json:"distinct_pages"`
	SessionCount  int64               `json:"session_count"`
	Products      []ViewedProduct     `json:"products"`
	Customer      *customers.Customer `json:"customer"`
}

var repeatSortFields = map[string]string{
	"last_activity":  "last_activity",
	"session_count":  "session_count",
	"distinct_pages": "distinct_pages",
	"session_id":     "session_id",
	"user_id":        "user_id",
}

// RepeatVisitors finds users with more than one active session in scope,
// where an active session views more than two distinct page URLs. Anonymous
// sessions cannot establish a returning identity and are excluded up front.
func RepeatVisitors(db *gorm.DB, logger *slog.Logger, params QueryParams) (Envelope[RepeatVisitorSession], error) {
	params = params.Normalize(0)

	scope := params.Scope()
	if scope.EmptyWindow() {
		return NewEnvelope[RepeatVisitorSession](nil, 0, params.Page, params.Limit), nil
	}

	scopeSQL, scopeArgs := scope.Fragment("r")

	sessionFilter := ""
	baseArgs := append(append([]interface{}{}, scopeArgs...), events.EventTypePageView)
	if params.Query != "" {
		sessionFilter = `
        AND r.user_id LIKE ?`
		baseArgs = append(baseArgs, "%"+params.Query+"%")
	}

	body := fmt.Sprintf(`
    WITH qualified_sessions AS (
        SELECT
            r.session_id AS session_id,
            r.user_id AS user_id,
            MAX(r.timestamp) AS last_activity,
            MAX(r.location_id) AS location_id,
            COUNT(DISTINCT r.page_url) AS distinct_pages
        FROM events r
        WHERE %s
        AND r.event_type = ?
        AND r.user_id <> ''%s
        GROUP BY r.session_id, r.user_id
        HAVING COUNT(DISTINCT r.page_url) > 2
    ),
    repeat_users AS (
        SELECT user_id, COUNT(*) AS session_count
        FROM qualified_sessions
        GROUP BY user_id
        HAVING COUNT(*) > 1
    )
    SELECT
        q.session_id,
        q.user_id,
        q.last_activity,
        q.location_id,
        q.distinct_pages,
        u.session_count
    FROM qualified_sessions q
    JOIN repeat_users u ON u.user_id = q.user_id`, scopeSQL, sessionFilter)

	var total int64
	if err := db.Raw("SELECT COUNT(*) FROM ("+body+") visits", baseArgs...).Scan(&total).Error; err != nil {
		return Envelope[RepeatVisitorSession]{}, fmt.Errorf("error counting repeat visitor sessions: %w", err)
	}

	var keyRows []struct {
		SessionID     string
		UserID        string
		LastActivity  string
		LocationID    string
		DistinctPages int64
		SessionCount  int64
	}
	pageQuery := fmt.Sprintf("%s\n    ORDER BY %s\n    LIMIT ? OFFSET ?",
		body, orderClause(repeatSortFields, params.SortField, params.SortOrder))
	pageArgs := append(append([]interface{}{}, baseArgs...), params.Limit, params.offset())
	if err := db.Raw(pageQuery, pageArgs...).Scan(&keyRows).Error; err != nil {
		return Envelope[RepeatVisitorSession]{}, fmt.Errorf("error fetching repeat visitor sessions: %w", err)
	}

	results := make([]RepeatVisitorSession, 0, len(keyRows))
	if len(keyRows) == 0 {
		return NewEnvelope(results, total, params.Page, params.Limit), nil
	}

	sessionIDs := make([]string, len(keyRows))
	for i, row := range keyRows {
		sessionIDs[i] = row.SessionID
	}

	// Products viewed during each of the page's sessions.
	var productRows []struct {
		SessionID string
		ItemID    string
		ItemName  string
	}
	productQuery := scope.Apply(db.Model(&events.Event{})).
		Distinct("session_id", "item_id", "item_name").
		Where("event_type = ?", events.EventTypeViewItem).
		Where("session_id IN ?", sessionIDs)
	if err := productQuery.Find(&productRows).Error; err != nil {
		return Envelope[RepeatVisitorSession]{}, fmt.Errorf("error fetching viewed products: %w", err)
	}

	productsBySession := make(map[string][]ViewedProduct, len(sessionIDs))
	for _, row := range productRows {
		productsBySession[row.SessionID] = append(productsBySession[row.SessionID], ViewedProduct{
			ItemID:   row.ItemID,
			ItemName: row.ItemName,
		})
	}

	customerByUser := make(map[string]*customers.Customer, len(keyRows))
	for _, row := range keyRows {
		entity := RepeatVisitorSession{
			SessionID:     row.SessionID,
			UserID:        row.UserID,
			LastActivity:  parseStoredTime(row.LastActivity),
			LocationID:    row.LocationID,
			DistinctPages: row.DistinctPages,
			SessionCount:  row.SessionCount,
			Products:      productsBySession[row.SessionID],
		}

		customer, seen := customerByUser[row.UserID]
		if !seen {
			var err error
			customer, err = customers.FindByExternalID(db, params.TenantID, row.UserID)
			if err != nil {
				logger.Warn("Failed to enrich repeat visitor", slog.String("userID", row.UserID), slog.Any("error", err))
			}
			customerByUser[row.UserID] = customer
		}
		entity.Customer = customer

		results = append(results, entity)
	}

	return NewEnvelope(results, total, params.Page, params.Limit), nil
}
