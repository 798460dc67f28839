// Package seeder generates realistic demo clickstream data. It doubles as
// the default extraction data source in development, so the whole pipeline
// can be exercised without a live upstream.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"shoplens/internal/customers"
	"shoplens/internal/database"
	"shoplens/internal/events"
	"shoplens/internal/extraction"
	"shoplens/internal/tenants"
)

var demoLocations = []tenants.Location{
	{Code: "NYC-01", Name: "New York Flagship"},
	{Code: "SFO-01", Name: "San Francisco"},
	{Code: "AUS-01", Name: "Austin Outlet"},
}

var demoCatalog = []struct {
	ID       string
	Name     string
	Category string
	Price    float64
}{
	{"SKU-1001", "Trail Running Shoes", "footwear", 129.90},
	{"SKU-1002", "Merino Wool Socks", "footwear", 18.50},
	{"SKU-2001", "Insulated Jacket", "outerwear", 249.00},
	{"SKU-2002", "Rain Shell", "outerwear", 159.00},
	{"SKU-3001", "Climbing Harness", "gear", 89.95},
	{"SKU-3002", "Trekking Poles", "gear", 74.00},
	{"SKU-4001", "Water Bottle 1L", "accessories", 24.00},
	{"SKU-4002", "Headlamp", "accessories", 42.50},
}

var demoPages = []string{
	"/", "/catalog", "/catalog/footwear", "/catalog/outerwear",
	"/catalog/gear", "/sale", "/about", "/shipping",
}

var failedSearchTerms = []string{
	"crampons", "ski wax", "avalanche beacon", "drybag 90l",
}

var searchTerms = []string{
	"running shoes", "jacket", "socks", "harness", "headlamp", "poles",
}

// Seeder provisions a demo tenant with locations, customers, and a window of
// generated events.
type Seeder struct {
	DBManager  *database.DBManager
	Logger     *slog.Logger
	WindowDays int
}

func NewSeeder(dbManager *database.DBManager, logger *slog.Logger, windowDays int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if windowDays < 1 {
		windowDays = 30
	}
	return &Seeder{
		DBManager:  dbManager,
		Logger:     logger,
		WindowDays: windowDays,
	}
}

// Run seeds the demo tenant and extracts a full event window for it through
// the regular pipeline, so seeded data takes the same write path as real
// data.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	db := s.DBManager.GetConnection()

	tenant, err := s.ensureDemoTenant(db)
	if err != nil {
		return err
	}
	s.Logger.Info("Seeding demo tenant",
		slog.Uint64("tenantID", uint64(tenant.ID)),
		slog.Int("windowDays", s.WindowDays))

	if err := s.ensureDemoCustomers(db, tenant.ID); err != nil {
		return err
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -s.WindowDays)

	store := events.NewStore(db)
	pipeline := extraction.NewPipeline(store, NewSource(), s.Logger, 0)
	report, err := pipeline.Extract(ctx, tenant.ID, from, to)
	if err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	s.Logger.Info("Seeding completed",
		slog.String("status", report.Run.Status),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) ensureDemoTenant(db *gorm.DB) (*tenants.Tenant, error) {
	var tenant tenants.Tenant
	err := db.Where("slug = ?", "demo-outfitters").First(&tenant).Error
	if err == nil {
		return &tenant, nil
	}

	tenant = tenants.Tenant{
		Name:   "Demo Outfitters",
		Slug:   "demo-outfitters",
		Active: true,
	}
	err = sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		for _, location := range demoLocations {
			location.TenantID = tenant.ID
			if err := tx.Create(&location).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create demo tenant: %w", err)
	}
	return &tenant, nil
}

var demoCustomers = []struct {
	Name  string
	Email string
}{
	{"Ada Moreno", "ada.moreno@example.com"},
	{"Koji Tanaka", "koji.tanaka@example.com"},
	{"Leah Fischer", "leah.fischer@example.com"},
	{"Sam Okafor", "sam.okafor@example.com"},
	{"Mina Haddad", "mina.haddad@example.com"},
}

func (s *Seeder) ensureDemoCustomers(db *gorm.DB, tenantID uint) error {
	return sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		for i, entry := range demoCustomers {
			externalID := fmt.Sprintf("user-%03d", i+1)
			var existing customers.Customer
			if tx.Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
				First(&existing).Error == nil {
				continue
			}
			customer := customers.Customer{
				TenantID:   tenantID,
				ExternalID: externalID,
				Name:       entry.Name,
				Email:      entry.Email,
			}
			if err := tx.Create(&customer).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Source generates synthetic clickstream sessions on demand. It implements
// extraction.DataSource, one category at a time, from a deterministic slice
// of per-session scripts so the six category fetches agree with each other.
type Source struct{}

func NewSource() *Source {
	return &Source{}
}

// FetchEvents generates the requested category's events for the window. The
// generator is seeded from (tenantID, day) so every category sees the same
// sessions.
func (src *Source) FetchEvents(ctx context.Context, category events.Category, tenantID uint, from, to time.Time) ([]events.Event, error) {
	eventType, ok := events.TypeForCategory(category)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var batch []events.Event
	for day := events.DateOf(from); !day.After(events.DateOf(to)); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rng := rand.New(rand.NewPCG(uint64(tenantID), uint64(day.Unix())))
		sessionCount := 20 + rng.IntN(30)
		for i := 0; i < sessionCount; i++ {
			session := generateSession(rng, day)
			for _, event := range session {
				if event.EventType == eventType {
					batch = append(batch, event)
				}
			}
		}
	}
	return batch, nil
}

// generateSession scripts one visit: pages viewed, items browsed, carts,
// purchases, and searches, with enough variety to light up every insight.
func generateSession(rng *rand.Rand, day time.Time) []events.Event {
	sessionID := sessionUUID(rng)
	// Leave headroom before midnight so the session's stamps stay on its day.
	base := day.Add(time.Duration(8+rng.IntN(12)) * time.Hour)
	location := demoLocations[rng.IntN(len(demoLocations))].Code

	userID := ""
	email := ""
	switch pick := rng.IntN(100); {
	case pick < 40:
		n := rng.IntN(len(demoCustomers))
		userID = fmt.Sprintf("user-%03d", n+1)
		email = demoCustomers[n].Email
	case pick < 50:
		// Anonymous session that still left an email on its cart events,
		// exercising the email fallback in cart enrichment.
		email = demoCustomers[rng.IntN(len(demoCustomers))].Email
	}

	common := events.Event{
		SessionID:  sessionID,
		UserID:     userID,
		LocationID: location,
		EventDate:  day,
	}

	var session []events.Event
	at := base
	stamp := func() time.Time {
		at = at.Add(time.Duration(10+rng.IntN(120)) * time.Second)
		return at
	}

	// Page views: bounces view one URL, engaged sessions several.
	pageViews := 1 + rng.IntN(6)
	if rng.IntN(100) < 25 {
		pageViews = 1
	}
	entry := demoPages[rng.IntN(len(demoPages))]
	for i := 0; i < pageViews; i++ {
		page := entry
		if i > 0 {
			page = demoPages[rng.IntN(len(demoPages))]
		}
		e := common
		e.EventType = events.EventTypePageView
		e.Timestamp = stamp()
		e.PageURL = page
		e.PageTitle = "Demo Outfitters " + page
		session = append(session, e)
	}

	// Item views and cart activity.
	viewed := rng.IntN(4)
	var cartItems []events.LineItem
	for i := 0; i < viewed; i++ {
		product := demoCatalog[rng.IntN(len(demoCatalog))]
		e := common
		e.EventType = events.EventTypeViewItem
		e.Timestamp = stamp()
		e.ItemID = product.ID
		e.ItemName = product.Name
		e.ItemCategory = product.Category
		e.Price = product.Price
		e.Quantity = 1
		session = append(session, e)

		if rng.IntN(100) < 45 {
			quantity := 1 + rng.IntN(3)
			cart := common
			cart.EventType = events.EventTypeAddToCart
			cart.Timestamp = stamp()
			cart.CustomerEmail = email
			cart.ItemID = product.ID
			cart.ItemName = product.Name
			cart.ItemCategory = product.Category
			cart.Price = product.Price
			cart.Quantity = quantity
			session = append(session, cart)
			cartItems = append(cartItems, events.LineItem{
				ItemID:   product.ID,
				ItemName: product.Name,
				Price:    product.Price,
				Quantity: quantity,
			})
		}
	}

	// Roughly half the carts convert; the rest become abandonment rows.
	if len(cartItems) > 0 && rng.IntN(100) < 50 {
		revenue := 0.0
		for _, item := range cartItems {
			revenue += item.Price * float64(item.Quantity)
		}
		payload, _ := json.Marshal(cartItems)
		e := common
		e.EventType = events.EventTypePurchase
		e.Timestamp = stamp()
		e.TransactionID = sessionUUID(rng)
		e.Revenue = revenue
		e.LineItems = events.JSON(payload)
		session = append(session, e)
	}

	// Searches, some of which return nothing.
	searches := rng.IntN(5)
	for i := 0; i < searches; i++ {
		e := common
		e.Timestamp = stamp()
		if rng.IntN(100) < 20 {
			e.EventType = events.EventTypeFailedSearch
			e.SearchTerm = failedSearchTerms[rng.IntN(len(failedSearchTerms))]
			e.ResultCount = 0
		} else {
			e.EventType = events.EventTypeSearch
			e.SearchTerm = searchTerms[rng.IntN(len(searchTerms))]
			e.ResultCount = 1 + rng.IntN(20)
		}
		session = append(session, e)
	}

	return session
}

// sessionUUID derives a UUID from the seeded generator so repeated seeding
// runs regenerate the same sessions instead of accumulating new ones.
func sessionUUID(rng *rand.Rand) string {
	var b [16]byte
	for i := 0; i < 16; i += 4 {
		v := rng.Uint32()
		b[i] = byte(v)
		b[i+1] = byte(v >> 8)
		b[i+2] = byte(v >> 16)
		b[i+3] = byte(v >> 24)
	}
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
