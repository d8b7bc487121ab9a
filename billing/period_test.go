package billing_test

import (
	"testing"
	"time"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// MONTH KEY TESTS
// =============================================================================

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		year  int
		month int
		want  string
	}{
		{2025, 0, "2025Jan"},
		{2025, 2, "2025Mar"},
		{2025, 11, "2025Dec"},
		{1999, 8, "1999Sep"},
	}
	for _, tc := range tests {
		got := billing.Period{Year: tc.year, Month: tc.month}.Key()
		if got != tc.want {
			t.Errorf("Period{%d,%d}.Key() = %q, want %q", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestPeriodPrevious_CrossesYearBoundary(t *testing.T) {
	p := billing.Period{Year: 2025, Month: 0}.Previous()
	if p.Year != 2024 || p.Month != 11 {
		t.Errorf("previous of Jan 2025 = %+v, want Dec 2024", p)
	}

	p = billing.Period{Year: 2025, Month: 6}.Previous()
	if p.Year != 2025 || p.Month != 5 {
		t.Errorf("previous of Jul 2025 = %+v, want Jun 2025", p)
	}
}

func TestPeriodIsFuture(t *testing.T) {
	now := time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

	// Own month is not future.
	if (billing.Period{Year: 2025, Month: 5}).IsFuture(now) {
		t.Error("current month should not be future")
	}
	// Immediate next month is future.
	if !(billing.Period{Year: 2025, Month: 6}).IsFuture(now) {
		t.Error("next month should be future")
	}
	// Immediate previous month is not.
	if (billing.Period{Year: 2025, Month: 4}).IsFuture(now) {
		t.Error("previous month should not be future")
	}
	// Year boundaries dominate the month index.
	if !(billing.Period{Year: 2026, Month: 0}).IsFuture(now) {
		t.Error("next January should be future")
	}
	if (billing.Period{Year: 2024, Month: 11}).IsFuture(now) {
		t.Error("last December should not be future")
	}
}

func TestPeriodsBetween(t *testing.T) {
	from := billing.Period{Year: 2025, Month: 2} // March
	to := billing.Period{Year: 2025, Month: 4}   // May

	months := billing.PeriodsBetween(from, to)
	if len(months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(months))
	}
	keys := []string{months[0].Key(), months[1].Key(), months[2].Key()}
	want := []string{"2025Mar", "2025Apr", "2025May"}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("month %d = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestPeriodsBetween_CrossYear(t *testing.T) {
	months := billing.PeriodsBetween(
		billing.Period{Year: 2024, Month: 10},
		billing.Period{Year: 2025, Month: 1},
	)
	if len(months) != 4 {
		t.Fatalf("expected 4 months, got %d", len(months))
	}
	if months[0].Key() != "2024Nov" || months[3].Key() != "2025Feb" {
		t.Errorf("unexpected range: %s .. %s", months[0].Key(), months[3].Key())
	}
}

func TestPeriodsBetween_Inverted(t *testing.T) {
	months := billing.PeriodsBetween(
		billing.Period{Year: 2025, Month: 4},
		billing.Period{Year: 2025, Month: 2},
	)
	if months != nil {
		t.Errorf("inverted range should yield nil, got %v", months)
	}
}

func TestPeriodOf(t *testing.T) {
	p := billing.PeriodOf(time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC))
	if p.Year != 2025 || p.Month != 2 {
		t.Errorf("PeriodOf(2025-03-31) = %+v, want {2025 2}", p)
	}
}
