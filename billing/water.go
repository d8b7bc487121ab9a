package billing

import "github.com/shopspring/decimal"

// =============================================================================
// WATER BILLING CALCULATOR
// =============================================================================

// WaterBill is the result of converting meter readings into currency.
// Units and Amount are nil when the month cannot be billed yet (missing
// reading). nil is the explicit "cannot compute" signal and must never be
// conflated with zero, which is a valid billed amount.
type WaterBill struct {
	Units          *decimal.Decimal
	Amount         *decimal.Decimal
	MeterReset     bool
	CurrentReading *decimal.Decimal
}

// Indeterminate reports whether the bill could not be computed.
func (b WaterBill) Indeterminate() bool { return b.Units == nil }

// WaterBill converts a tenancy's readings for the target period into
// billable units and a rounded currency amount.
//
// With the reset flag set for the period, the current reading is an absolute
// count from zero: units = reading × multiplier. Otherwise units are the
// delta from the previous month's reading. Negative units are a valid
// output (likely an unrecorded meter reset) — the caller decides how to
// react; only missing readings make the result indeterminate.
func (c Config) WaterBill(readings map[string]decimal.Decimal, resets map[string]bool, p Period, rate decimal.Decimal) WaterBill {
	key := p.Key()
	prevKey := p.Previous().Key()

	current, haveCurrent := readings[key]
	previous, havePrevious := readings[prevKey]
	reset := resets[key]

	bill := WaterBill{MeterReset: reset}
	if haveCurrent {
		bill.CurrentReading = &current
	}

	var units decimal.Decimal
	switch {
	case reset:
		if !haveCurrent {
			return bill
		}
		units = current.Mul(c.UnitsMultiplier)
	default:
		if !haveCurrent || !havePrevious {
			return bill
		}
		units = current.Sub(previous).Mul(c.UnitsMultiplier)
	}

	amount := roundCurrency(units.Mul(rate))
	bill.Units = &units
	bill.Amount = &amount
	return bill
}

// TenancyWaterBill is the common case: bill one tenancy's month using its
// own reading history and effective rate.
func (c Config) TenancyWaterBill(t *Tenancy, p Period) WaterBill {
	return c.WaterBill(t.Readings, t.MeterReset, p, t.EffectiveWaterRate(c))
}
