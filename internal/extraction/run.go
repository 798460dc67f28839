// Package extraction populates the event store from an external data source,
// one bounded worker per event category, with per-category failure isolation.
package extraction

import (
	"time"

	"shoplens/internal/events"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Per-category outcomes. A timed-out category was still pending when the
// deadline hit; its window is untouched and safe to retry.
const (
	CategoryOK       = "ok"
	CategoryFailed   = "failed"
	CategoryTimedOut = "timed_out"
)

// CategoryStatus is one entry of the per-category status map.
type CategoryStatus struct {
	Status string `json:"status"`
	Events int    `json:"events"`
	Error  string `json:"error,omitempty"`
}

// Run is the persisted record of one extraction attempt. Categories holds
// the serialized per-category status map so partial failures stay auditable
// after the fact.
type Run struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	RunID      string     `gorm:"uniqueIndex;size:36;not null"`
	TenantID   uint       `gorm:"index;not null"`
	FromDate   time.Time  `gorm:"not null"`
	ToDate     time.Time  `gorm:"not null"`
	Status     string     `gorm:"size:16;not null"`
	Categories events.JSON `gorm:"type:text"`
	StartedAt  time.Time
	FinishedAt time.Time
	CreatedAt  time.Time
}
