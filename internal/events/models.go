package events

import "time"

// EventType discriminates the six clickstream event variants stored in the
// shared events table.
type EventType int

const (
	EventTypePageView     EventType = 1
	EventTypeViewItem     EventType = 2
	EventTypeAddToCart    EventType = 3
	EventTypePurchase     EventType = 4
	EventTypeSearch       EventType = 5
	EventTypeFailedSearch EventType = 6
)

// Category is the external name of an event stream, used by the extraction
// pipeline and its per-category status map.
type Category string

const (
	CategoryPageView     Category = "page_view"
	CategoryViewItem     Category = "view_item"
	CategoryAddToCart    Category = "add_to_cart"
	CategoryPurchase     Category = "purchase"
	CategorySearch       Category = "search"
	CategoryFailedSearch Category = "failed_search"
)

// Categories lists all event categories in a fixed order.
var Categories = []Category{
	CategoryPageView,
	CategoryViewItem,
	CategoryAddToCart,
	CategoryPurchase,
	CategorySearch,
	CategoryFailedSearch,
}

var categoryTypes = map[Category]EventType{
	CategoryPageView:     EventTypePageView,
	CategoryViewItem:     EventTypeViewItem,
	CategoryAddToCart:    EventTypeAddToCart,
	CategoryPurchase:     EventTypePurchase,
	CategorySearch:       EventTypeSearch,
	CategoryFailedSearch: EventTypeFailedSearch,
}

// TypeForCategory maps a category name to its storage discriminator.
func TypeForCategory(c Category) (EventType, bool) {
	t, ok := categoryTypes[c]
	return t, ok
}

// Event is the tagged-union record for all six clickstream variants. Common
// attributes are always set; variant attributes are populated according to
// EventType and left at their zero value otherwise.
//
// UserID is empty for anonymous sessions. LocationID is empty for events not
// attributable to a branch.
type Event struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	TenantID  uint      `gorm:"index:idx_tenant_type_date;index:idx_tenant_session;not null"`
	EventType EventType `gorm:"index:idx_tenant_type_date;not null"`
	EventDate time.Time `gorm:"index:idx_tenant_type_date;not null"`
	Timestamp time.Time `gorm:"not null"`
	SessionID string    `gorm:"index:idx_tenant_session;size:64;not null"`
	UserID    string    `gorm:"index;size:64"`
	// CustomerEmail is an alternate customer identifier some upstream
	// trackers attach to cart events when no user id is known.
	CustomerEmail string `gorm:"size:255"`
	LocationID    string `gorm:"index;size:32"`

	// PageView
	PageURL   string `gorm:"index"`
	PageTitle string

	// ViewItem / AddToCart
	ItemID       string `gorm:"index;size:64"`
	ItemName     string
	ItemCategory string
	Price        float64
	Quantity     int

	// Purchase
	TransactionID string `gorm:"index;size:64"`
	Revenue       float64
	LineItems     JSON `gorm:"type:text"`

	// Search / FailedSearch
	SearchTerm  string `gorm:"index"`
	ResultCount int

	CreatedAt time.Time
}

// LineItem is the decoded shape of one entry in a purchase's LineItems payload.
type LineItem struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// DateOf truncates a timestamp to its calendar date in UTC, the form stored
// in EventDate.
func DateOf(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
