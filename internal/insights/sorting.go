package insights

import (
	"fmt"
	"strings"
	"time"
)

// Every result set shares the same determinism guarantee: the caller's sort
// key (from an algorithm-specific allow-list) is applied first, ties break
// on last_activity DESC, and session_id ASC is the terminal key so repeated
// calls against unchanged data always return the same order. An unknown or
// omitted sort field means "use the default", never an error.

const defaultOrder = "last_activity DESC, session_id ASC"

// orderClause builds the ORDER BY expression for a raw query. The allowed
// map translates caller-facing field names to SQL columns, which also keeps
// caller input out of the generated SQL.
func orderClause(allowed map[string]string, field, order string) string {
	column, ok := allowed[strings.ToLower(field)]
	if !ok {
		return defaultOrder
	}

	direction := "ASC"
	if order == SortDesc {
		direction = "DESC"
	}

	if column == "last_activity" {
		return fmt.Sprintf("last_activity %s, session_id ASC", direction)
	}
	return fmt.Sprintf("%s %s, %s", column, direction, defaultOrder)
}

// sqliteTimeLayouts covers the textual datetime forms GORM's SQLite driver
// produces for stored timestamps and for aggregate expressions.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseStoredTime decodes a datetime string coming back from a raw SQL
// aggregate. Expressions lose their column type in SQLite, so these always
// arrive as text.
func parseStoredTime(value string) time.Time {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
