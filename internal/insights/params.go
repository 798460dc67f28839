// Package insights implements the derived-insight algorithms: cart
// abandonment, bounce analysis, repeat visitors, and search analysis.
//
// Every algorithm recomputes its result from the event store on each call;
// derived entities are never persisted. Pagination is applied to the grouped
// entity keys before any detail enrichment, since enrichment is the
// expensive fan-out.
package insights

import (
	"strings"
	"time"

	"shoplens/internal/events"
)

// Default pagination values applied when the caller omits them.
const (
	DefaultPage  = 1
	DefaultLimit = 50
)

// SortOrder values accepted from callers.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// QueryParams is the uniform parameter set shared by the four insight
// queries. Unknown sort fields and inverted date ranges are resolved
// locally (default sort, empty window); they are never rejected.
type QueryParams struct {
	TenantID   uint
	From       time.Time
	To         time.Time
	LocationID string

	Page      int
	Limit     int
	SortField string
	SortOrder string

	// Query is a free-text substring filter over entity-specific text
	// fields.
	Query string

	// IssueType selects which bounce sub-result is populated
	// ("high_bounce" | "page_bounce_issue"); empty returns both.
	IssueType string

	// IncludeConverted keeps sessions with purchases in the search
	// analysis instead of anti-joining them away.
	IncludeConverted bool
}

// Scope derives the store scope from the query parameters.
func (p QueryParams) Scope() events.Scope {
	return events.Scope{
		TenantID:   p.TenantID,
		From:       p.From,
		To:         p.To,
		LocationID: p.LocationID,
	}
}

// Normalize fills pagination defaults and clamps the limit.
func (p QueryParams) Normalize(maxLimit int) QueryParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	p.SortOrder = strings.ToLower(p.SortOrder)
	if p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		p.SortOrder = ""
	}
	return p
}

func (p QueryParams) offset() int {
	return (p.Page - 1) * p.Limit
}

// Envelope is the uniform paginated response wrapper. Total counts distinct
// qualifying entities before enrichment, independent of page and limit.
type Envelope[T any] struct {
	Data    []T   `json:"data"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	HasMore bool  `json:"has_more"`
}

// NewEnvelope wraps a page of entities. HasMore is true exactly when
// page*limit < total.
func NewEnvelope[T any](data []T, total int64, page, limit int) Envelope[T] {
	if data == nil {
		data = []T{}
	}
	return Envelope[T]{
		Data:    data,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: int64(page)*int64(limit) < total,
	}
}
