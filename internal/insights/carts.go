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

// CartItem is one product line inside an abandoned cart.
type CartItem struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// AbandonedCartSession is a session that added to cart and never purchased
// under the same tenant+session key. Customer fields stay null when no
// identity could be resolved; the session is never dropped for that.
type AbandonedCartSession struct {
	SessionID    string              `json:"session_id"`
	LastActivity time.Time           `json:"last_activity"`
	LocationID   string              `json:"location_id,omitempty"`
	ItemsCount   int64               `json:"items_count"`
	CartValue    float64             `json:"cart_value"`
	Items        []CartItem          `json:"items"`
	UserID       string              `json:"user_id,omitempty"`
	Customer     *customers.Customer `json:"customer"`
}

var cartSortFields = map[string]string{
	"last_activity": "last_activity",
	"cart_value":    "cart_value",
	"items_count":   "items_count",
	"session_id":    "session_id",
}

// AbandonedCarts finds sessions with at least one cart addition and no
// purchase for the same tenant+session key. The purchase side of the
// anti-join is deliberately unbounded by the date window: a purchase made in
// the same session outside the window still converts it.
func AbandonedCarts(db *gorm.DB, logger *slog.Logger, params QueryParams) (Envelope[AbandonedCartSession], error) {
	params = params.Normalize(0)

	scope := params.Scope()
	if scope.EmptyWindow() {
		return NewEnvelope[AbandonedCartSession](nil, 0, params.Page, params.Limit), nil
	}

	scopeSQL, scopeArgs := scope.Fragment("c")

	body := fmt.Sprintf(`
    SELECT
        c.session_id AS session_id,
        MAX(c.timestamp) AS last_activity,
        MAX(c.location_id) AS location_id,
        COUNT(*) AS items_count,
        COALESCE(SUM(c.price * c.quantity), 0) AS cart_value
    FROM events c
    WHERE %s
    AND c.event_type = ?
    AND NOT EXISTS (
        SELECT 1 FROM events p
        WHERE p.tenant_id = c.tenant_id
        AND p.session_id = c.session_id
        AND p.event_type = ?
    )`, scopeSQL)
	args := append(scopeArgs, events.EventTypeAddToCart, events.EventTypePurchase)

	// The free-text filter qualifies sessions, not rows: a cart stays whole,
	// with its full count and value, as long as any of its items match.
	if params.Query != "" {
		pattern := "%" + params.Query + "%"
		body += `
    AND EXISTS (
        SELECT 1 FROM events q
        WHERE q.tenant_id = c.tenant_id
        AND q.session_id = c.session_id
        AND q.event_type = ?
        AND (q.item_name LIKE ? OR q.item_category LIKE ?)
    )`
		args = append(args, events.EventTypeAddToCart, pattern, pattern)
	}

	body += `
    GROUP BY c.session_id`

	var total int64
	countQuery := "SELECT COUNT(*) FROM (" + body + ") keys"
	if err := db.Raw(countQuery, args...).Scan(&total).Error; err != nil {
		return Envelope[AbandonedCartSession]{}, fmt.Errorf("error counting abandoned carts: %w", err)
	}

	var keyRows []struct {
		SessionID    string
		LastActivity string
		LocationID   string
		ItemsCount   int64
		CartValue    float64
	}
	pageQuery := fmt.Sprintf("%s\n    ORDER BY %s\n    LIMIT ? OFFSET ?",
		body, orderClause(cartSortFields, params.SortField, params.SortOrder))
	pageArgs := append(args, params.Limit, params.offset())
	if err := db.Raw(pageQuery, pageArgs...).Scan(&keyRows).Error; err != nil {
		return Envelope[AbandonedCartSession]{}, fmt.Errorf("error fetching abandoned cart sessions: %w", err)
	}

	results := make([]AbandonedCartSession, 0, len(keyRows))
	if len(keyRows) == 0 {
		return NewEnvelope(results, total, params.Page, params.Limit), nil
	}

	// Detail enrichment runs only for the page's sessions.
	sessionIDs := make([]string, len(keyRows))
	for i, row := range keyRows {
		sessionIDs[i] = row.SessionID
	}

	var cartRows []events.Event
	detail := scope.Apply(db.Model(&events.Event{})).
		Where("event_type = ?", events.EventTypeAddToCart).
		Where("session_id IN ?", sessionIDs).
		Order("timestamp ASC")
	if err := detail.Find(&cartRows).Error; err != nil {
		return Envelope[AbandonedCartSession]{}, fmt.Errorf("error fetching cart items: %w", err)
	}

	itemsBySession := make(map[string][]CartItem, len(sessionIDs))
	emailBySession := make(map[string]string, len(sessionIDs))
	for _, row := range cartRows {
		itemsBySession[row.SessionID] = append(itemsBySession[row.SessionID], CartItem{
			ItemID:   row.ItemID,
			ItemName: row.ItemName,
			Price:    row.Price,
			Quantity: row.Quantity,
		})
		if emailBySession[row.SessionID] == "" && row.CustomerEmail != "" {
			emailBySession[row.SessionID] = row.CustomerEmail
		}
	}

	resolver := sessions.NewResolver(db, params.TenantID)
	for _, row := range keyRows {
		entity := AbandonedCartSession{
			SessionID:    row.SessionID,
			LastActivity: parseStoredTime(row.LastActivity),
			LocationID:   row.LocationID,
			ItemsCount:   row.ItemsCount,
			CartValue:    row.CartValue,
			Items:        itemsBySession[row.SessionID],
		}

		userID, err := resolver.ResolveUser(row.SessionID)
		if err != nil {
			logger.Warn("Failed to resolve session user", slog.String("sessionID", row.SessionID), slog.Any("error", err))
		}
		entity.UserID = userID

		customer, err := resolveCartCustomer(db, params.TenantID, userID, emailBySession[row.SessionID])
		if err != nil {
			logger.Warn("Failed to enrich cart customer", slog.String("sessionID", row.SessionID), slog.Any("error", err))
		}
		entity.Customer = customer

		results = append(results, entity)
	}

	return NewEnvelope(results, total, params.Page, params.Limit), nil
}

// resolveCartCustomer matches by user id first, then by the email recorded
// on the cart event. Enrichment misses resolve to nil, never to an error.
func resolveCartCustomer(db *gorm.DB, tenantID uint, userID, email string) (*customers.Customer, error) {
	if userID != "" {
		customer, err := customers.FindByExternalID(db, tenantID, userID)
		if err != nil || customer != nil {
			return customer, err
		}
	}
	if email == "" {
		return nil, nil
	}
	return customers.FindByEmail(db, tenantID, email)
}
