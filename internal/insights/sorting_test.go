package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderClause(t *testing.T) {
	allowed := map[string]string{
		"last_activity": "last_activity",
		"cart_value":    "cart_value",
	}

	assert.Equal(t, defaultOrder, orderClause(allowed, "", ""))
	assert.Equal(t, defaultOrder, orderClause(allowed, "drop table", SortAsc))
	assert.Equal(t, "cart_value DESC, last_activity DESC, session_id ASC", orderClause(allowed, "cart_value", SortDesc))
	assert.Equal(t, "cart_value ASC, last_activity DESC, session_id ASC", orderClause(allowed, "CART_VALUE", ""))
	assert.Equal(t, "last_activity ASC, session_id ASC", orderClause(allowed, "last_activity", SortAsc))
}

func TestParseStoredTime(t *testing.T) {
	cases := map[string]time.Time{
		"2026-06-01 09:30:00":           time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC),
		"2026-06-01 09:30:00.123+00:00": time.Date(2026, 6, 1, 9, 30, 0, 123_000_000, time.UTC),
		"2026-06-01":                    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		assert.True(t, parseStoredTime(input).Equal(want), "input %q", input)
	}

	assert.True(t, parseStoredTime("not a time").IsZero())
}
