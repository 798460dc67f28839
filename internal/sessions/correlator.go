// Package sessions resolves a session to its best-known user identity.
//
// Resolution is a best-effort heuristic: event streams are scanned in a
// fixed priority order, most information-dense first, and the first
// non-empty user id wins. Anonymous sessions correctly resolve to no user.
package sessions

import (
	"fmt"

	"gorm.io/gorm"

	"shoplens/internal/events"
)

// lookupStrategy is one step of the ordered resolution chain. It returns the
// user id found in one event stream, or "" to fall through to the next step.
type lookupStrategy struct {
	name      string
	eventType events.EventType
}

// Purchases carry confirmed identities, cart additions usually carry the
// shopper id, page views and item views only sometimes do, and searches are
// the least likely to be attributed. That ordering is the whole strategy.
var strategies = []lookupStrategy{
	{name: "purchase", eventType: events.EventTypePurchase},
	{name: "add_to_cart", eventType: events.EventTypeAddToCart},
	{name: "view_item", eventType: events.EventTypeViewItem},
	{name: "page_view", eventType: events.EventTypePageView},
	{name: "search", eventType: events.EventTypeSearch},
	{name: "failed_search", eventType: events.EventTypeFailedSearch},
}

// Resolver memoizes per-session lookups for the duration of one enrichment
// pass. It is fixed to a single tenant at construction, which is what makes
// the memo safe: entries from different tenants can never share a resolver.
type Resolver struct {
	db       *gorm.DB
	tenantID uint
	memo     map[string]string
}

// NewResolver creates a resolver for one tenant. Resolvers are cheap and
// request-scoped; do not share them across requests.
func NewResolver(db *gorm.DB, tenantID uint) *Resolver {
	return &Resolver{
		db:       db,
		tenantID: tenantID,
		memo:     make(map[string]string),
	}
}

// ResolveUser returns the best-known user id for a session, or "" when the
// session is anonymous. Repeated calls with unchanged event data return the
// same result.
func (r *Resolver) ResolveUser(sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	if userID, seen := r.memo[sessionID]; seen {
		return userID, nil
	}

	userID, err := r.lookup(sessionID)
	if err != nil {
		return "", err
	}

	r.memo[sessionID] = userID
	return userID, nil
}

func (r *Resolver) lookup(sessionID string) (string, error) {
	for _, strategy := range strategies {
		var userIDs []string
		err := r.db.Model(&events.Event{}).
			Where("tenant_id = ?", r.tenantID).
			Where("session_id = ?", sessionID).
			Where("event_type = ?", strategy.eventType).
			Where("user_id <> ''").
			Order("timestamp ASC").
			Limit(1).
			Pluck("user_id", &userIDs).Error
		if err != nil {
			return "", fmt.Errorf("error resolving user via %s events: %w", strategy.name, err)
		}
		if len(userIDs) > 0 && userIDs[0] != "" {
			return userIDs[0], nil
		}
	}
	return "", nil
}
