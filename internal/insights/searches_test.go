package insights_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/insights"
	"shoplens/internal/testsupport"
)

func TestSearchIssuesUnionsBothDetectors(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	// Failed search in one session, three fruitless searches in another.
	testsupport.InsertEvent(t, db, testsupport.FailedSearch(1, "failing", "", "hover boots", day))
	for i := 0; i < 3; i++ {
		testsupport.InsertEvent(t, db, testsupport.Search(1, "fruitless", "", "boots", 12, day.Add(time.Duration(i)*time.Minute)))
	}

	result, err := insights.SearchIssues(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Total)
	require.Len(t, result.Data, 2)

	byType := map[string]insights.SearchIssue{}
	for _, issue := range result.Data {
		byType[issue.Type] = issue
	}

	noResults, ok := byType[insights.SearchNoResults]
	require.True(t, ok)
	assert.Equal(t, "failing", noResults.SessionID)
	assert.Equal(t, "hover boots", noResults.SearchTerm)
	assert.Equal(t, int64(1), noResults.Searches)

	noConversion, ok := byType[insights.SearchNoConversion]
	require.True(t, ok)
	assert.Equal(t, "fruitless", noConversion.SessionID)
	assert.Equal(t, int64(3), noConversion.Searches)
}

func TestSearchIssuesNoConversionRequiresMoreThanTwoSearches(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	testsupport.InsertEvent(t, db, testsupport.Search(1, "s1", "", "boots", 12, day))
	testsupport.InsertEvent(t, db, testsupport.Search(1, "s1", "", "boots", 12, day.Add(time.Minute)))

	result, err := insights.SearchIssues(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
}

func TestSearchIssuesConvertedSessionIsNotAnIssue(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		testsupport.InsertEvent(t, db, testsupport.Search(1, "s1", "", "boots", 12, day.Add(time.Duration(i)*time.Minute)))
	}
	testsupport.InsertEvent(t, db, testsupport.Purchase(1, "s1", "", "tx-1", 120, day.Add(time.Hour)))

	result, err := insights.SearchIssues(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Data, "a purchase resolves the no_conversion issue")

	withConverted, err := insights.SearchIssues(db, logger, insights.QueryParams{
		TenantID: 1, IncludeConverted: true,
	})
	require.NoError(t, err)
	require.Len(t, withConverted.Data, 1)
	assert.Equal(t, insights.SearchNoConversion, withConverted.Data[0].Type)
}

func TestSearchIssuesFailedSearchesGroupBySessionAndTerm(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	// Same term twice in one session collapses to one row; a different
	// term in the same session is its own row.
	testsupport.InsertEvent(t, db, testsupport.FailedSearch(1, "s1", "", "hover boots", day))
	testsupport.InsertEvent(t, db, testsupport.FailedSearch(1, "s1", "", "hover boots", day.Add(time.Minute)))
	testsupport.InsertEvent(t, db, testsupport.FailedSearch(1, "s1", "", "jetpack", day.Add(2*time.Minute)))

	result, err := insights.SearchIssues(db, logger, insights.QueryParams{
		TenantID: 1, SortField: "search_term", SortOrder: insights.SortAsc,
	})
	require.NoError(t, err)

	require.Len(t, result.Data, 2)
	assert.Equal(t, "hover boots", result.Data[0].SearchTerm)
	assert.Equal(t, int64(2), result.Data[0].Searches)
	assert.Equal(t, "jetpack", result.Data[1].SearchTerm)
	assert.Equal(t, int64(1), result.Data[1].Searches)
}

func TestSearchIssuesTermFilter(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	testsupport.InsertEvent(t, db, testsupport.FailedSearch(1, "s1", "", "hover boots", day))
	testsupport.InsertEvent(t, db, testsupport.FailedSearch(1, "s2", "", "jetpack", day))

	result, err := insights.SearchIssues(db, logger, insights.QueryParams{TenantID: 1, Query: "boots"})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "hover boots", result.Data[0].SearchTerm)
}

func TestSearchIssuesCustomerEnrichment(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	testsupport.CreateTestCustomer(t, db, 1, "u1", "Ada Moreno", "ada@example.com")
	testsupport.InsertEvent(t, db, testsupport.FailedSearch(1, "s1", "u1", "hover boots", day))

	result, err := insights.SearchIssues(db, logger, insights.QueryParams{TenantID: 1})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	require.NotNil(t, result.Data[0].Customer)
	assert.Equal(t, "Ada Moreno", result.Data[0].Customer.Name)
}
