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

// Issue type facet selectors for the bounce report.
const (
	IssueHighBounce      = "high_bounce"
	IssuePageBounceIssue = "page_bounce_issue"
)

// BouncedSession is a session whose page views all hit a single distinct URL.
type BouncedSession struct {
	SessionID    string              `json:"session_id"`
	LastActivity time.Time           `json:"last_activity"`
	LocationID   string              `json:"location_id,omitempty"`
	EntryPage    string              `json:"entry_page"`
	PageViews    int64               `json:"page_views"`
	UserID       string              `json:"user_id,omitempty"`
	Customer     *customers.Customer `json:"customer"`
}

// BouncedPage is one entry in the frequently-bounced-pages facet.
type BouncedPage struct {
	PageURL  string `json:"page_url"`
	Sessions int64  `json:"sessions"`
}

// BounceFacets carries the counts behind both issue types. They are always
// computed, whichever facet the caller selected, so a filter UI can show
// both tabs.
type BounceFacets struct {
	HighBounce      int64 `json:"high_bounce"`
	PageBounceIssue int64 `json:"page_bounce_issue"`
}

// BounceReport bundles the bounced-session list and the top bounced pages.
// The IssueType parameter toggles which sub-result is populated; the other
// comes back empty while its facet count stays filled in.
type BounceReport struct {
	Sessions Envelope[BouncedSession] `json:"sessions"`
	TopPages []BouncedPage            `json:"top_pages"`
	Facets   BounceFacets             `json:"facets"`
}

var bounceSortFields = map[string]string{
	"last_activity": "last_activity",
	"entry_page":    "entry_page",
	"page_views":    "page_views",
	"session_id":    "session_id",
}

// Bounces computes the bounce report. A bounced session has exactly one
// distinct page URL across its page views; repeated views of that one URL
// still count as a bounce.
func Bounces(db *gorm.DB, logger *slog.Logger, params QueryParams) (BounceReport, error) {
	params = params.Normalize(0)

	report := BounceReport{
		Sessions: NewEnvelope[BouncedSession](nil, 0, params.Page, params.Limit),
		TopPages: []BouncedPage{},
	}

	scope := params.Scope()
	if scope.EmptyWindow() {
		return report, nil
	}

	scopeSQL, scopeArgs := scope.Fragment("b")

	body := fmt.Sprintf(`
    SELECT
        b.session_id AS session_id,
        MAX(b.timestamp) AS last_activity,
        MAX(b.location_id) AS location_id,
        MAX(b.page_url) AS entry_page,
        COUNT(*) AS page_views
    FROM events b
    WHERE %s
    AND b.event_type = ?`, scopeSQL)
	baseArgs := append(append([]interface{}{}, scopeArgs...), events.EventTypePageView)

	body += `
    GROUP BY b.session_id
    HAVING COUNT(DISTINCT b.page_url) = 1`

	// The free-text filter selects among bounced sessions; it must never
	// decide what counts as a bounce, so it applies after the grouping.
	if params.Query != "" {
		body += `
    AND (MAX(b.page_url) LIKE ? OR MAX(b.page_title) LIKE ?)`
		pattern := "%" + params.Query + "%"
		baseArgs = append(baseArgs, pattern, pattern)
	}

	// Facet counts run unconditionally.
	if err := db.Raw("SELECT COUNT(*) FROM ("+body+") bounced", baseArgs...).
		Scan(&report.Facets.HighBounce).Error; err != nil {
		return report, fmt.Errorf("error counting bounced sessions: %w", err)
	}

	pageIssueQuery := `
    SELECT COUNT(*) FROM (
        SELECT entry_page FROM (` + body + `) bounced
        GROUP BY entry_page
        HAVING COUNT(*) >= 2
    ) pages`
	if err := db.Raw(pageIssueQuery, baseArgs...).Scan(&report.Facets.PageBounceIssue).Error; err != nil {
		return report, fmt.Errorf("error counting bounced pages: %w", err)
	}

	if params.IssueType == "" || params.IssueType == IssuePageBounceIssue {
		topQuery := `
    SELECT entry_page AS page_url, COUNT(*) AS sessions FROM (` + body + `) bounced
    GROUP BY entry_page
    ORDER BY sessions DESC, page_url ASC
    LIMIT 10`
		if err := db.Raw(topQuery, baseArgs...).Scan(&report.TopPages).Error; err != nil {
			return report, fmt.Errorf("error fetching bounced pages: %w", err)
		}
		if report.TopPages == nil {
			report.TopPages = []BouncedPage{}
		}
	}

	if params.IssueType != "" && params.IssueType != IssueHighBounce {
		return report, nil
	}

	var keyRows []struct {
		SessionID    string
		LastActivity string
		LocationID   string
		EntryPage    string
		PageViews    int64
	}
	pageQuery := fmt.Sprintf("%s\n    ORDER BY %s\n    LIMIT ? OFFSET ?",
		body, orderClause(bounceSortFields, params.SortField, params.SortOrder))
	pageArgs := append(append([]interface{}{}, baseArgs...), params.Limit, params.offset())
	if err := db.Raw(pageQuery, pageArgs...).Scan(&keyRows).Error; err != nil {
		return report, fmt.Errorf("error fetching bounced sessions: %w", err)
	}

	resolver := sessions.NewResolver(db, params.TenantID)
	rows := make([]BouncedSession, 0, len(keyRows))
	for _, row := range keyRows {
		entity := BouncedSession{
			SessionID:    row.SessionID,
			LastActivity: parseStoredTime(row.LastActivity),
			LocationID:   row.LocationID,
			EntryPage:    row.EntryPage,
			PageViews:    row.PageViews,
		}

		userID, err := resolver.ResolveUser(row.SessionID)
		if err != nil {
			logger.Warn("Failed to resolve session user", slog.String("sessionID", row.SessionID), slog.Any("error", err))
		}
		entity.UserID = userID

		if userID != "" {
			customer, err := customers.FindByExternalID(db, params.TenantID, userID)
			if err != nil {
				logger.Warn("Failed to enrich bounce customer", slog.String("sessionID", row.SessionID), slog.Any("error", err))
			}
			entity.Customer = customer
		}

		rows = append(rows, entity)
	}

	report.Sessions = NewEnvelope(rows, report.Facets.HighBounce, params.Page, params.Limit)
	return report, nil
}
