package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EVICTION SETTLEMENT CALCULATOR
// =============================================================================

// ComputeSettlement produces the deposit settlement for a tenancy being
// vacated. Pure computation — persistence is the caller's responsibility.
//
// Every calendar month from the notice month through the vacate month counts
// as a full billed month; a partial final month is not prorated, which pairs
// with the flat one-month mandatory rent. Months whose water charge cannot
// be computed are listed in MissingWaterMonths and contribute zero, so the
// total is understated until a human resolves them.
//
// Returns nil when either date is zero or the vacate date precedes the
// notice date: no settlement can exist for an empty or inverted range.
// Callers must treat nil as a normal, displayable state.
func (c Config) ComputeSettlement(t *Tenancy, notice, vacate time.Time, autoGenerated bool) *Settlement {
	if notice.IsZero() || vacate.IsZero() || vacate.Before(notice) {
		return nil
	}

	months := PeriodsBetween(PeriodOf(notice), PeriodOf(vacate))
	rate := t.EffectiveWaterRate(c)
	monthsCount := decimal.NewFromInt(int64(len(months)))

	s := &Settlement{
		NoticeDate:     notice,
		VacateDate:     vacate,
		MonthlyRent:    t.Rent,
		WaterRate:      rate,
		ServiceCharge:  c.ServiceCharge,
		Deposit:        t.Deposit,
		WaterByMonth:   make(map[string]decimal.Decimal, len(months)),
		ServiceByMonth: make(map[string]decimal.Decimal, len(months)),
		AutoGenerated:  autoGenerated,
	}

	waterTotal := decimal.Zero
	for _, p := range months {
		key := p.Key()
		s.Months = append(s.Months, key)
		s.ServiceByMonth[key] = c.ServiceCharge

		bill := c.WaterBill(t.Readings, t.MeterReset, p, rate)
		if bill.Indeterminate() {
			s.MissingWaterMonths = append(s.MissingWaterMonths, key)
			s.WaterByMonth[key] = decimal.Zero
			continue
		}
		s.WaterByMonth[key] = *bill.Amount
		waterTotal = waterTotal.Add(*bill.Amount)
	}

	s.RentDeduction = roundCurrency(t.Rent.Mul(monthsCount))
	s.MandatoryRent = roundCurrency(t.Rent)
	s.WaterDeduction = roundCurrency(waterTotal)
	s.ServiceTotal = roundCurrency(c.ServiceCharge.Mul(monthsCount))
	s.TotalDeduction = s.RentDeduction.
		Add(s.MandatoryRent).
		Add(s.WaterDeduction).
		Add(s.ServiceTotal)
	s.Refund = s.Deposit.Sub(s.TotalDeduction)

	return s
}

// Finalize marks the settlement immutable. Auto-generated snapshots may be
// recomputed and overwritten until this is called.
func (s *Settlement) Finalize() {
	s.Finalized = true
	s.AutoGenerated = false
}
