package insights_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shoplens/internal/insights"
	"shoplens/internal/testsupport"
)

// insertActiveSession spreads page views over three distinct URLs so the
// session qualifies as active.
func insertActiveSession(t *testing.T, db *gorm.DB, tenantID uint, sessionID, userID string, at time.Time) {
	t.Helper()
	for i, url := range []string{"/home", "/catalog", "/product/1"} {
		testsupport.InsertEvent(t, db, testsupport.PageView(tenantID, sessionID, userID, url, at.Add(time.Duration(i)*time.Minute)))
	}
}

func TestRepeatVisitorsOneRowPerQualifyingSession(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	insertActiveSession(t, db, 1, "s1", "u1", day)
	insertActiveSession(t, db, 1, "s2", "u1", day.AddDate(0, 0, 1))
	insertActiveSession(t, db, 1, "s3", "u1", day.AddDate(0, 0, 2))

	result, err := insights.RepeatVisitors(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Total)
	require.Len(t, result.Data, 3)
	for _, session := range result.Data {
		assert.Equal(t, "u1", session.UserID)
		assert.Equal(t, int64(3), session.SessionCount)
		assert.Equal(t, int64(3), session.DistinctPages)
	}
}

func TestRepeatVisitorsRequiresMoreThanOneSession(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	insertActiveSession(t, db, 1, "only", "u1", day)

	result, err := insights.RepeatVisitors(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
	assert.Equal(t, int64(0), result.Total)
}

func TestRepeatVisitorsRequiresMoreThanTwoDistinctPages(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	// Two shallow sessions: two distinct URLs each, five views apiece.
	// Neither qualifies, so the user is not a repeat visitor.
	for _, session := range []string{"s1", "s2"} {
		for i := 0; i < 5; i++ {
			url := "/home"
			if i%2 == 0 {
				url = "/catalog"
			}
			testsupport.InsertEvent(t, db, testsupport.PageView(1, session, "u1", url, day.Add(time.Duration(i)*time.Minute)))
		}
	}

	result, err := insights.RepeatVisitors(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
}

func TestRepeatVisitorsExcludesAnonymousSessions(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	insertActiveSession(t, db, 1, "anon1", "", day)
	insertActiveSession(t, db, 1, "anon2", "", day.AddDate(0, 0, 1))

	result, err := insights.RepeatVisitors(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
}

func TestRepeatVisitorsProductEnrichment(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	testsupport.CreateTestCustomer(t, db, 1, "u1", "Ada Moreno", "ada@example.com")

	insertActiveSession(t, db, 1, "s1", "u1", day)
	insertActiveSession(t, db, 1, "s2", "u1", day.AddDate(0, 0, 1))
	testsupport.InsertEvent(t, db, testsupport.ViewItem(1, "s1", "u1", "SKU-1", "Trail Shoes", 120, day.Add(5*time.Minute)))
	testsupport.InsertEvent(t, db, testsupport.ViewItem(1, "s1", "u1", "SKU-1", "Trail Shoes", 120, day.Add(6*time.Minute)))
	testsupport.InsertEvent(t, db, testsupport.ViewItem(1, "s1", "u1", "SKU-2", "Wool Socks", 12, day.Add(7*time.Minute)))

	result, err := insights.RepeatVisitors(db, logger, insights.QueryParams{
		TenantID: 1, SortField: "session_id", SortOrder: insights.SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, result.Data, 2)

	s1 := result.Data[0]
	assert.Equal(t, "s1", s1.SessionID)
	assert.Len(t, s1.Products, 2, "repeated views of one item collapse to one product")
	require.NotNil(t, s1.Customer)
	assert.Equal(t, "Ada Moreno", s1.Customer.Name)

	s2 := result.Data[1]
	assert.Empty(t, s2.Products)
}

func TestRepeatVisitorsUserFilter(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	insertActiveSession(t, db, 1, "a1", "alpha", day)
	insertActiveSession(t, db, 1, "a2", "alpha", day.AddDate(0, 0, 1))
	insertActiveSession(t, db, 1, "b1", "beta", day)
	insertActiveSession(t, db, 1, "b2", "beta", day.AddDate(0, 0, 1))

	result, err := insights.RepeatVisitors(db, logger, insights.QueryParams{TenantID: 1, Query: "alp"})
	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	for _, session := range result.Data {
		assert.Equal(t, "alpha", session.UserID)
	}
}
