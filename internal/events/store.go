package events

import (
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

const eventsTableName = "events"

// Store provides typed read access to the six event streams and the
// upsert-style write path used by the extraction pipeline. All reads go
// through Scope so the tenant filter can never be skipped.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over an open database connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for the insight queries, which build
// raw SQL over the same scoped fragments.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) byType(scope Scope, eventType EventType) ([]Event, error) {
	if scope.EmptyWindow() {
		return nil, nil
	}
	var result []Event
	q := scope.Apply(s.db.Model(&Event{})).
		Where("event_type = ?", eventType).
		Order("timestamp ASC")
	if err := q.Find(&result).Error; err != nil {
		return nil, fmt.Errorf("error fetching %s events: %w", s.typeName(eventType), err)
	}
	return result, nil
}

// PageViews returns the scoped page view stream.
func (s *Store) PageViews(scope Scope) ([]Event, error) {
	return s.byType(scope, EventTypePageView)
}

// ViewItems returns the scoped item view stream.
func (s *Store) ViewItems(scope Scope) ([]Event, error) {
	return s.byType(scope, EventTypeViewItem)
}

// AddToCarts returns the scoped cart stream.
func (s *Store) AddToCarts(scope Scope) ([]Event, error) {
	return s.byType(scope, EventTypeAddToCart)
}

// Purchases returns the scoped purchase stream.
func (s *Store) Purchases(scope Scope) ([]Event, error) {
	return s.byType(scope, EventTypePurchase)
}

// Searches returns the scoped stream of searches that returned results.
func (s *Store) Searches(scope Scope) ([]Event, error) {
	return s.byType(scope, EventTypeSearch)
}

// FailedSearches returns the scoped stream of zero-result searches.
func (s *Store) FailedSearches(scope Scope) ([]Event, error) {
	return s.byType(scope, EventTypeFailedSearch)
}

// CountByType counts scoped events of one variant.
func (s *Store) CountByType(scope Scope, eventType EventType) (int64, error) {
	if scope.EmptyWindow() {
		return 0, nil
	}
	var count int64
	q := scope.Apply(s.db.Model(&Event{})).Where("event_type = ?", eventType)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting %s events: %w", s.typeName(eventType), err)
	}
	return count, nil
}

// SessionEvents returns every event of one session within a tenant, across
// all variants, ordered by time.
func (s *Store) SessionEvents(tenantID uint, sessionID string) ([]Event, error) {
	var result []Event
	err := s.db.Model(&Event{}).
		Where("tenant_id = ?", tenantID).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching session events: %w", err)
	}
	return result, nil
}

// ReplaceWindow atomically replaces one tenant's events of one variant
// within a date window. Extraction retries re-run this after partial
// failures, so the delete-then-insert shape is what makes re-runs safe:
// the same window never accumulates duplicate rows.
func (s *Store) ReplaceWindow(logger *slog.Logger, eventType EventType, tenantID uint, from, to time.Time, batch []Event) error {
	fromDate, toDate := DateOf(from), DateOf(to)

	return sqlite.PerformWrite(logger, s.db, func(tx *gorm.DB) error {
		del := tx.Where("tenant_id = ?", tenantID).
			Where("event_type = ?", eventType).
			Where("event_date >= ? AND event_date <= ?", fromDate, toDate).
			Delete(&Event{})
		if del.Error != nil {
			return fmt.Errorf("failed to clear %s window: %w", s.typeName(eventType), del.Error)
		}

		if len(batch) == 0 {
			return nil
		}

		for i := range batch {
			batch[i].ID = 0
			batch[i].TenantID = tenantID
			batch[i].EventType = eventType
			if batch[i].EventDate.IsZero() {
				batch[i].EventDate = DateOf(batch[i].Timestamp)
			}
		}

		if err := tx.CreateInBatches(batch, 500).Error; err != nil {
			return fmt.Errorf("failed to insert %s batch: %w", s.typeName(eventType), err)
		}
		return nil
	})
}

func (s *Store) typeName(eventType EventType) string {
	for category, t := range categoryTypes {
		if t == eventType {
			return string(category)
		}
	}
	return fmt.Sprintf("type_%d", eventType)
}
