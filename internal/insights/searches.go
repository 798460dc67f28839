package insights

import (
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"shoplens/internal/customers"
	"shoplens/internal/events"
	"shoplens/internal/sessions"
)

// Search issue discriminators. Both kinds share one result shape and one
// pagination scope; the type field tells them apart in the output.
const (
	SearchNoResults    = "no_results"
	SearchNoConversion = "no_conversion"
)

// SearchIssue is a search problem worth following up on: either a term that
// returned nothing, or a session that kept searching without buying.
type SearchIssue struct {
	Type         string              `json:"type"`
	SessionID    string              `json:"session_id"`
	SearchTerm   string              `json:"search_term"`
	Searches     int64               `json:"searches"`
	LastActivity time.Time           `json:"last_activity"`
	LocationID   string              `json:"location_id,omitempty"`
	UserID       string              `json:"user_id,omitempty"`
	Customer     *customers.Customer `json:"customer"`
}

var searchSortFields = map[string]string{
	"last_activity": "last_activity",
	"searches":      "searches",
	"search_term":   "search_term",
	"session_id":    "session_id",
	"type":          "issue_type",
}

// SearchIssues unions two detectors over one paginated result. The
// no_results branch surfaces every failed search grouped by session and
// term. The no_conversion branch surfaces sessions with more than two
// successful searches and, unless IncludeConverted is set, no purchase in
// that session.
func SearchIssues(db *gorm.DB, logger *slog.Logger, params QueryParams) (Envelope[SearchIssue], error) {
	params = params.Normalize(0)

	scope := params.Scope()
	if scope.EmptyWindow() {
		return NewEnvelope[SearchIssue](nil, 0, params.Page, params.Limit), nil
	}

	scopeSQL, scopeArgs := scope.Fragment("s")

	termFilter := ""
	if params.Query != "" {
		termFilter = `
        AND s.search_term LIKE ?`
	}
	pattern := "%" + params.Query + "%"

	noResults := fmt.Sprintf(`
        SELECT
            'no_results' AS issue_type,
            s.session_id AS session_id,
            s.search_term AS search_term,
            COUNT(*) AS searches,
            MAX(s.timestamp) AS last_activity,
            MAX(s.location_id) AS location_id
        FROM events s
        WHERE %s
        AND s.event_type = ?%s
        GROUP BY s.session_id, s.search_term`, scopeSQL, termFilter)

	args := append(append([]interface{}{}, scopeArgs...), events.EventTypeFailedSearch)
	if params.Query != "" {
		args = append(args, pattern)
	}

	conversionFilter := ""
	if !params.IncludeConverted {
		conversionFilter = `
        AND NOT EXISTS (
            SELECT 1 FROM events p
            WHERE p.tenant_id = s.tenant_id
            AND p.session_id = s.session_id
            AND p.event_type = ?
        )`
	}

	noConversion := fmt.Sprintf(`
        SELECT
            'no_conversion' AS issue_type,
            s.session_id AS session_id,
            MAX(s.search_term) AS search_term,
            COUNT(*) AS searches,
            MAX(s.timestamp) AS last_activity,
            MAX(s.location_id) AS location_id
        FROM events s
        WHERE %s
        AND s.event_type = ?%s%s
        GROUP BY s.session_id
        HAVING COUNT(*) > 2`, scopeSQL, termFilter, conversionFilter)

	args = append(append(args, scopeArgs...), events.EventTypeSearch)
	if params.Query != "" {
		args = append(args, pattern)
	}
	if !params.IncludeConverted {
		args = append(args, events.EventTypePurchase)
	}

	body := noResults + `

    UNION ALL
` + noConversion

	var total int64
	if err := db.Raw("SELECT COUNT(*) FROM ("+body+") issues", args...).Scan(&total).Error; err != nil {
		return Envelope[SearchIssue]{}, fmt.Errorf("error counting search issues: %w", err)
	}

	var keyRows []struct {
		IssueType    string
		SessionID    string
		SearchTerm   string
		Searches     int64
		LastActivity string
		LocationID   string
	}
	pageQuery := fmt.Sprintf("SELECT * FROM (%s) issues\n    ORDER BY %s\n    LIMIT ? OFFSET ?",
		body, orderClause(searchSortFields, params.SortField, params.SortOrder))
	pageArgs := append(append([]interface{}{}, args...), params.Limit, params.offset())
	if err := db.Raw(pageQuery, pageArgs...).Scan(&keyRows).Error; err != nil {
		return Envelope[SearchIssue]{}, fmt.Errorf("error fetching search issues: %w", err)
	}

	resolver := sessions.NewResolver(db, params.TenantID)
	results := make([]SearchIssue, 0, len(keyRows))
	for _, row := range keyRows {
		entity := SearchIssue{
			Type:         row.IssueType,
			SessionID:    row.SessionID,
			SearchTerm:   row.SearchTerm,
			Searches:     row.Searches,
			LastActivity: parseStoredTime(row.LastActivity),
			LocationID:   row.LocationID,
		}

		userID, err := resolver.ResolveUser(row.SessionID)
		if err != nil {
			logger.Warn("Failed to resolve session user", slog.String("sessionID", row.SessionID), slog.Any("error", err))
		}
		entity.UserID = userID

		if userID != "" {
			customer, err := customers.FindByExternalID(db, params.TenantID, userID)
			if err != nil {
				logger.Warn("Failed to enrich search customer", slog.String("sessionID", row.SessionID), slog.Any("error", err))
			}
			entity.Customer = customer
		}

		results = append(results, entity)
	}

	return NewEnvelope(results, total, params.Page, params.Limit), nil
}
