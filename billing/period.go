package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Year + month, the key for all per-month maps
// =============================================================================

// Period identifies one calendar month. Month is 0-based (January = 0),
// matching how every calculator in this package indexes months; display
// labels use the 3-letter abbreviation.
type Period struct {
	Year  int
	Month int // 0-based, [0,11]
}

var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Key returns the stable month label used as the map key for readings,
// payment statuses and settlement breakdowns, e.g. "2025Mar". Label
// construction happens here and nowhere else.
func (p Period) Key() string {
	return fmt.Sprintf("%04d%s", p.Year, monthAbbrevs[p.Month])
}

// Previous returns the preceding month, crossing the year boundary.
func (p Period) Previous() Period {
	if p.Month == 0 {
		return Period{Year: p.Year - 1, Month: 11}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 11 {
		return Period{Year: p.Year + 1, Month: 0}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// FirstDay returns midnight UTC on the first of the month.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, time.Month(p.Month+1), 1, 0, 0, 0, 0, time.UTC)
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	return p.Year < other.Year || (p.Year == other.Year && p.Month < other.Month)
}

// IsFuture reports whether the period lies after now's month. Used to lock
// edits and exclude unrealized months from aggregation.
func (p Period) IsFuture(now time.Time) bool {
	if p.Year != now.Year() {
		return p.Year > now.Year()
	}
	return p.Month > int(now.Month())-1
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month()) - 1}
}

// PeriodsBetween enumerates every month from from through to inclusive.
// Returns nil when to precedes from.
func PeriodsBetween(from, to Period) []Period {
	if to.Before(from) {
		return nil
	}
	var out []Period
	for p := from; !to.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// =============================================================================
// DATE HELPERS
// =============================================================================

// atMidnight truncates t to local midnight.
func atMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysUntil returns whole days from `from` to `to`, both taken at local
// midnight, ceiling-rounded toward `to`.
func daysUntil(from, to time.Time) int {
	d := atMidnight(to).Sub(atMidnight(from))
	days := int(d.Hours() / 24)
	if d > 0 && d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
