// Package customers holds the customer reference entity used to enrich
// derived-insight rows. Customer attributes are output-only: they are never
// used as a join key across tenants.
package customers

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Customer is a known shopper identity within one tenant. ExternalID matches
// the user_id carried on events; Email is the fallback matching key for cart
// events recorded without a user id.
type Customer struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID   uint      `gorm:"uniqueIndex:idx_tenant_external;not null" json:"tenant_id"`
	ExternalID string    `gorm:"uniqueIndex:idx_tenant_external;not null" json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `gorm:"index" json:"email"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
}

// FindByExternalID looks up a customer by the user id recorded on events.
// A miss returns (nil, nil): enrichment misses are not errors.
func FindByExternalID(db *gorm.DB, tenantID uint, externalID string) (*Customer, error) {
	if externalID == "" {
		return nil, nil
	}
	var customer Customer
	err := db.Where("tenant_id = ? AND external_id = ?", tenantID, externalID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByEmail is the fallback lookup for cart events that carry a customer
// email but no user id.
func FindByEmail(db *gorm.DB, tenantID uint, email string) (*Customer, error) {
	if email == "" {
		return nil, nil
	}
	var customer Customer
	err := db.Where("tenant_id = ? AND email = ?", tenantID, email).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
