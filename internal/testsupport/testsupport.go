// Package testsupport provides shared database and fixture helpers for
// package tests.
package testsupport

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shoplens/internal/customers"
	"shoplens/internal/events"
	"shoplens/internal/extraction"
	"shoplens/internal/tenants"
)

// testDBCache caches test databases by test name so multiple calls within
// the same test share one database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// allModels returns all shoplens models for migration
func allModels() []any {
	return []any{
		&tenants.Tenant{},
		&tenants.Location{},
		&customers.Customer{},
		&events.Event{},
		&extraction.Run{},
	}
}

// SetupTestDB creates a test database with all shoplens models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a test logger that only surfaces errors
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateTestTenant creates an active tenant, reusing one with the same slug
func CreateTestTenant(t *testing.T, db *gorm.DB, slug string) tenants.Tenant {
	t.Helper()

	var tenant tenants.Tenant
	if db.Where("slug = ?", slug).First(&tenant).Error == nil {
		return tenant
	}
	tenant = tenants.Tenant{Name: slug, Slug: slug, Active: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("testsupport: failed to create tenant: %v", err)
	}
	return tenant
}

// CreateInactiveTenant creates a deactivated tenant
func CreateInactiveTenant(t *testing.T, db *gorm.DB, slug string) tenants.Tenant {
	t.Helper()

	tenant := tenants.Tenant{Name: slug, Slug: slug, Active: false}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("testsupport: failed to create tenant: %v", err)
	}
	// gorm substitutes the column's default:true for a zero-value bool on
	// insert, so the inactive flag must be written in a separate update.
	if err := db.Model(&tenant).Update("active", false).Error; err != nil {
		t.Fatalf("testsupport: failed to deactivate tenant: %v", err)
	}
	return tenant
}

// CreateTestLocation registers a location for a tenant
func CreateTestLocation(t *testing.T, db *gorm.DB, tenantID uint, code, name string) tenants.Location {
	t.Helper()

	location := tenants.Location{TenantID: tenantID, Code: code, Name: name}
	if err := db.Create(&location).Error; err != nil {
		t.Fatalf("testsupport: failed to create location: %v", err)
	}
	return location
}

// CreateTestCustomer registers a customer identity for enrichment tests
func CreateTestCustomer(t *testing.T, db *gorm.DB, tenantID uint, externalID, name, email string) customers.Customer {
	t.Helper()

	customer := customers.Customer{
		TenantID:   tenantID,
		ExternalID: externalID,
		Name:       name,
		Email:      email,
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("testsupport: failed to create customer: %v", err)
	}
	return customer
}

// InsertEvent stores one event row, filling EventDate from the timestamp
func InsertEvent(t *testing.T, db *gorm.DB, event events.Event) events.Event {
	t.Helper()

	if event.EventDate.IsZero() {
		event.EventDate = events.DateOf(event.Timestamp)
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("testsupport: failed to insert event: %v", err)
	}
	return event
}

// PageView builds a page view event
func PageView(tenantID uint, sessionID, userID, pageURL string, at time.Time) events.Event {
	return events.Event{
		TenantID:  tenantID,
		EventType: events.EventTypePageView,
		Timestamp: at,
		SessionID: sessionID,
		UserID:    userID,
		PageURL:   pageURL,
	}
}

// ViewItem builds an item view event
func ViewItem(tenantID uint, sessionID, userID, itemID, itemName string, price float64, at time.Time) events.Event {
	return events.Event{
		TenantID:  tenantID,
		EventType: events.EventTypeViewItem,
		Timestamp: at,
		SessionID: sessionID,
		UserID:    userID,
		ItemID:    itemID,
		ItemName:  itemName,
		Price:     price,
		Quantity:  1,
	}
}

// AddToCart builds a cart addition event
func AddToCart(tenantID uint, sessionID, userID, itemID, itemName string, price float64, quantity int, at time.Time) events.Event {
	return events.Event{
		TenantID:  tenantID,
		EventType: events.EventTypeAddToCart,
		Timestamp: at,
		SessionID: sessionID,
		UserID:    userID,
		ItemID:    itemID,
		ItemName:  itemName,
		Price:     price,
		Quantity:  quantity,
	}
}

// Purchase builds a purchase event
func Purchase(tenantID uint, sessionID, userID, transactionID string, revenue float64, at time.Time) events.Event {
	return events.Event{
		TenantID:      tenantID,
		EventType:     events.EventTypePurchase,
		Timestamp:     at,
		SessionID:     sessionID,
		UserID:        userID,
		TransactionID: transactionID,
		Revenue:       revenue,
	}
}

// Search builds a search event with results
func Search(tenantID uint, sessionID, userID, term string, results int, at time.Time) events.Event {
	return events.Event{
		TenantID:    tenantID,
		EventType:   events.EventTypeSearch,
		Timestamp:   at,
		SessionID:   sessionID,
		UserID:      userID,
		SearchTerm:  term,
		ResultCount: results,
	}
}

// FailedSearch builds a zero-result search event
func FailedSearch(tenantID uint, sessionID, userID, term string, at time.Time) events.Event {
	return events.Event{
		TenantID:   tenantID,
		EventType:  events.EventTypeFailedSearch,
		Timestamp:  at,
		SessionID:  sessionID,
		UserID:     userID,
		SearchTerm: term,
	}
}
