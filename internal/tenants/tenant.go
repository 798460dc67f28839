package tenants

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TenantNotFoundError represents an error when a tenant is not found
type TenantNotFoundError struct {
	TenantID uint
}

func (e *TenantNotFoundError) Error() string {
	return fmt.Sprintf("tenant not found: %d", e.TenantID)
}

// NewTenantNotFoundError creates a new TenantNotFoundError
func NewTenantNotFoundError(tenantID uint) *TenantNotFoundError {
	return &TenantNotFoundError{TenantID: tenantID}
}

// TenantInactiveError represents an error when a tenant exists but is disabled
type TenantInactiveError struct {
	TenantID uint
}

func (e *TenantInactiveError) Error() string {
	return fmt.Sprintf("tenant is inactive: %d", e.TenantID)
}

// Tenant represents an isolated customer account. Every event and every
// query is scoped to exactly one tenant.
type Tenant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"unique;not null" json:"slug"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Location represents a branch or warehouse belonging to a tenant.
type Location struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID  uint      `gorm:"uniqueIndex:idx_tenant_location;not null" json:"tenant_id"`
	Code      string    `gorm:"uniqueIndex:idx_tenant_location;not null" json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GetTenant retrieves a tenant by id.
func GetTenant(db *gorm.DB, tenantID uint) (*Tenant, error) {
	var tenant Tenant
	if err := db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewTenantNotFoundError(tenantID)
		}
		return nil, fmt.Errorf("unexpected error querying tenant: %w", err)
	}
	return &tenant, nil
}

// RequireActiveTenant resolves a tenant and rejects inactive ones. This is
// the gate every query operation passes before touching event data.
func RequireActiveTenant(db *gorm.DB, tenantID uint) (*Tenant, error) {
	tenant, err := GetTenant(db, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, &TenantInactiveError{TenantID: tenantID}
	}
	return tenant, nil
}

// GetLocations returns all locations registered for a tenant, ordered by code.
func GetLocations(db *gorm.DB, tenantID uint) ([]Location, error) {
	var locations []Location
	if err := db.Where("tenant_id = ?", tenantID).Order("code ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("error fetching locations: %w", err)
	}
	return locations, nil
}

// GetActiveTenants returns all active tenants, used by the extraction scheduler.
func GetActiveTenants(db *gorm.DB) ([]Tenant, error) {
	var all []Tenant
	if err := db.Where("active = ?", true).Order("id ASC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("error fetching active tenants: %w", err)
	}
	return all, nil
}
