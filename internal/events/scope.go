package events

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Scope carries the predicates every read path must apply: the mandatory
// tenant filter plus the optional date range and location filters. Applying
// the tenant filter first, on every access path, is the isolation invariant
// the whole engine is built on.
type Scope struct {
	TenantID   uint
	From       time.Time // zero = unbounded
	To         time.Time // zero = unbounded
	LocationID string    // empty = all locations
}

// EmptyWindow reports whether the range is inverted (end before start).
// An inverted range is resolved locally to "no data", never to an error.
func (s Scope) EmptyWindow() bool {
	return !s.From.IsZero() && !s.To.IsZero() && s.To.Before(s.From)
}

// Apply attaches the scope predicates to a GORM query chain. The tenant
// predicate is always added first and unconditionally.
func (s Scope) Apply(q *gorm.DB) *gorm.DB {
	q = q.Where("tenant_id = ?", s.TenantID)
	if !s.From.IsZero() {
		q = q.Where("event_date >= ?", DateOf(s.From))
	}
	if !s.To.IsZero() {
		q = q.Where("event_date <= ?", DateOf(s.To))
	}
	if s.LocationID != "" {
		q = q.Where("location_id = ?", s.LocationID)
	}
	return q
}

// Fragment renders the scope as a SQL fragment for raw queries, with the
// given table alias. The tenant predicate always comes first.
func (s Scope) Fragment(alias string) (string, []interface{}) {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}

	clauses := []string{prefix + "tenant_id = ?"}
	args := []interface{}{s.TenantID}

	if !s.From.IsZero() {
		clauses = append(clauses, prefix+"event_date >= ?")
		args = append(args, DateOf(s.From))
	}
	if !s.To.IsZero() {
		clauses = append(clauses, prefix+"event_date <= ?")
		args = append(args, DateOf(s.To))
	}
	if s.LocationID != "" {
		clauses = append(clauses, prefix+"location_id = ?")
		args = append(args, s.LocationID)
	}

	return strings.Join(clauses, " AND "), args
}
