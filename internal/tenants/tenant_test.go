package tenants_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/tenants"
	"shoplens/internal/testsupport"
)

func TestRequireActiveTenant(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	active := testsupport.CreateTestTenant(t, db, "active-shop")
	inactive := testsupport.CreateInactiveTenant(t, db, "closed-shop")

	tenant, err := tenants.RequireActiveTenant(db, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "active-shop", tenant.Slug)

	_, err = tenants.RequireActiveTenant(db, inactive.ID)
	var inactiveErr *tenants.TenantInactiveError
	require.ErrorAs(t, err, &inactiveErr)
	assert.Equal(t, inactive.ID, inactiveErr.TenantID)

	_, err = tenants.RequireActiveTenant(db, 9999)
	var notFound *tenants.TenantNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestGetLocationsOrderedByCode(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	tenant := testsupport.CreateTestTenant(t, db, "multi-branch")
	other := testsupport.CreateTestTenant(t, db, "elsewhere")
	testsupport.CreateTestLocation(t, db, tenant.ID, "sfo", "San Francisco")
	testsupport.CreateTestLocation(t, db, tenant.ID, "nyc", "New York")
	testsupport.CreateTestLocation(t, db, other.ID, "aaa", "Not Yours")

	locations, err := tenants.GetLocations(db, tenant.ID)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "nyc", locations[0].Code)
	assert.Equal(t, "sfo", locations[1].Code)
}

func TestGetActiveTenants(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	first := testsupport.CreateTestTenant(t, db, "first")
	testsupport.CreateInactiveTenant(t, db, "dormant")
	second := testsupport.CreateTestTenant(t, db, "second")

	active, err := tenants.GetActiveTenants(db)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)
}
