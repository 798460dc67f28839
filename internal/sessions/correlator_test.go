package sessions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/sessions"
	"shoplens/internal/testsupport"
)

func TestResolveUserPrefersPurchaseIdentity(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	day := time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)

	// The page view carries a different id than the purchase; the purchase
	// wins because it sits first in the strategy order.
	testsupport.InsertEvent(t, db, testsupport.PageView(1, "s1", "shared-device", "/a", day))
	testsupport.InsertEvent(t, db, testsupport.Purchase(1, "s1", "buyer-7", "tx-1", 120, day.Add(time.Minute)))

	resolver := sessions.NewResolver(db, 1)
	userID, err := resolver.ResolveUser("s1")
	require.NoError(t, err)
	assert.Equal(t, "buyer-7", userID)
}

func TestResolveUserFallsThroughToLaterStreams(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	day := time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)

	testsupport.InsertEvent(t, db, testsupport.PageView(1, "s2", "", "/a", day))
	testsupport.InsertEvent(t, db, testsupport.Search(1, "s2", "searcher-1", "socks", 3, day.Add(time.Minute)))

	resolver := sessions.NewResolver(db, 1)
	userID, err := resolver.ResolveUser("s2")
	require.NoError(t, err)
	assert.Equal(t, "searcher-1", userID)
}

func TestResolveUserAnonymousSession(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	day := time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)

	testsupport.InsertEvent(t, db, testsupport.PageView(1, "s3", "", "/a", day))

	resolver := sessions.NewResolver(db, 1)

	userID, err := resolver.ResolveUser("s3")
	require.NoError(t, err)
	assert.Empty(t, userID)

	// Idempotent on repeat, including the memoized path
	userID, err = resolver.ResolveUser("s3")
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestResolveUserNeverCrossesTenants(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	day := time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)

	// Same session id, different tenants
	testsupport.InsertEvent(t, db, testsupport.Purchase(2, "collide", "tenant2-user", "tx-9", 80, day))
	testsupport.InsertEvent(t, db, testsupport.PageView(1, "collide", "", "/a", day))

	resolver := sessions.NewResolver(db, 1)
	userID, err := resolver.ResolveUser("collide")
	require.NoError(t, err)
	assert.Empty(t, userID, "identity from another tenant must never leak")
}

func TestResolveUserEmptySessionID(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	resolver := sessions.NewResolver(db, 1)
	userID, err := resolver.ResolveUser("")
	require.NoError(t, err)
	assert.Empty(t, userID)
}
