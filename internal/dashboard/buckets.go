// Package dashboard computes the tenant overview metrics, the bucketed time
// series behind the dashboard chart, and the per-location rollups. All three
// recompute from the event store on every call and may run concurrently
// within one composite request.
package dashboard

import (
	"fmt"
	"time"
)

// Granularity selects the time series bucket size.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity maps a caller-supplied value to a granularity. Unknown
// values fall back to daily rather than erroring.
func ParseGranularity(value string) Granularity {
	switch Granularity(value) {
	case GranularityWeekly:
		return GranularityWeekly
	case GranularityMonthly:
		return GranularityMonthly
	default:
		return GranularityDaily
	}
}

// Bucket is one calendar slot of the series. Key is the value the SQL group
// expression produces for events falling in the slot; Label is the
// caller-facing bucket name; Start is the slot's first day at UTC midnight.
type Bucket struct {
	Key   string
	Label string
	Start time.Time
}

// maxBuckets caps series length against runaway date ranges.
const maxBuckets = 1000

// groupExpression returns the SQLite expression that buckets a datetime
// column. Every granularity yields a YYYY-MM-DD key: the day itself, the
// Monday starting the ISO week, or the first of the month. Expressions lose
// their declared type in SQLite, so these always scan back as text.
func groupExpression(g Granularity, column string) string {
	switch g {
	case GranularityWeekly:
		return fmt.Sprintf("date(%s, 'start of day', '-' || ((strftime('%%w', %s) + 6) %% 7) || ' days')", column, column)
	case GranularityMonthly:
		return fmt.Sprintf("strftime('%%Y-%%m-01', %s)", column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
	}
}

// truncate snaps a time to its bucket start: the day, the Monday of its ISO
// week, or the first of its month, always at UTC midnight.
func truncate(t time.Time, g Granularity) time.Time {
	utc := t.UTC()
	year, month, day := utc.Year(), utc.Month(), utc.Day()

	switch g {
	case GranularityWeekly:
		weekday := int(utc.Weekday())
		if weekday == 0 { // Sunday
			weekday = 7
		}
		return time.Date(year, month, day-(weekday-1), 0, 0, 0, 0, time.UTC)
	case GranularityMonthly:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
}

func advance(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeekly:
		return t.AddDate(0, 0, 7)
	case GranularityMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func label(start time.Time, g Granularity) string {
	switch g {
	case GranularityWeekly:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case GranularityMonthly:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

// GenerateBuckets produces the gap-free calendar sequence covering
// [from, to]. Buckets with no underlying events are still generated, so the
// merged series never has holes.
func GenerateBuckets(g Granularity, from, to time.Time) []Bucket {
	buckets := []Bucket{}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return buckets
	}

	end := truncate(to, g)
	for current := truncate(from, g); !current.After(end); current = advance(current, g) {
		buckets = append(buckets, Bucket{
			Key:   current.Format("2006-01-02"),
			Label: label(current, g),
			Start: current,
		})
		if len(buckets) >= maxBuckets {
			break
		}
	}
	return buckets
}
