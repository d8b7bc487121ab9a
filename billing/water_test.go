package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-engine/billing"
)

// Shared test helpers for the billing package.

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func dp(f float64) *decimal.Decimal {
	v := decimal.NewFromFloat(f)
	return &v
}

func assertDecimal(t *testing.T, want float64, got decimal.Decimal, msg string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %v", msg, got.String(), want)
	}
}

// =============================================================================
// WATER BILL TESTS
// =============================================================================

func TestWaterBill_DeltaFromPreviousMonth(t *testing.T) {
	cfg := billing.DefaultConfig()
	readings := map[string]decimal.Decimal{
		"2025Feb": d(80),
		"2025Mar": d(100),
	}

	bill := cfg.WaterBill(readings, nil, billing.Period{Year: 2025, Month: 2}, d(0.25))

	require.False(t, bill.Indeterminate())
	assertDecimal(t, 200, *bill.Units, "units")  // (100-80) × 10
	assertDecimal(t, 50, *bill.Amount, "amount") // 200 × 0.25
	assert.False(t, bill.MeterReset)
	assertDecimal(t, 100, *bill.CurrentReading, "current reading")
}

func TestWaterBill_MeterReset(t *testing.T) {
	cfg := billing.DefaultConfig()
	readings := map[string]decimal.Decimal{
		"2025Feb": d(9950), // old meter, irrelevant once reset
		"2025Mar": d(5),
	}
	resets := map[string]bool{"2025Mar": true}

	bill := cfg.WaterBill(readings, resets, billing.Period{Year: 2025, Month: 2}, d(0.25))

	require.False(t, bill.Indeterminate())
	assertDecimal(t, 50, *bill.Units, "units") // 5 × 10, reading counted from zero
	assertDecimal(t, 13, *bill.Amount, "amount")
	assert.True(t, bill.MeterReset)
}

func TestWaterBill_MissingCurrentReading(t *testing.T) {
	cfg := billing.DefaultConfig()
	readings := map[string]decimal.Decimal{"2025Feb": d(80)}

	bill := cfg.WaterBill(readings, nil, billing.Period{Year: 2025, Month: 2}, d(0.25))

	assert.True(t, bill.Indeterminate())
	assert.Nil(t, bill.Units)
	assert.Nil(t, bill.Amount)
	assert.Nil(t, bill.CurrentReading)
}

func TestWaterBill_MissingPreviousReading(t *testing.T) {
	cfg := billing.DefaultConfig()
	readings := map[string]decimal.Decimal{"2025Mar": d(100)}

	bill := cfg.WaterBill(readings, nil, billing.Period{Year: 2025, Month: 2}, d(0.25))

	assert.True(t, bill.Indeterminate())
	// The reading itself is still echoed back for display.
	require.NotNil(t, bill.CurrentReading)
	assertDecimal(t, 100, *bill.CurrentReading, "current reading")
}

func TestWaterBill_ResetWithoutReadingIsIndeterminate(t *testing.T) {
	cfg := billing.DefaultConfig()
	resets := map[string]bool{"2025Mar": true}

	bill := cfg.WaterBill(nil, resets, billing.Period{Year: 2025, Month: 2}, d(0.25))

	assert.True(t, bill.Indeterminate())
	assert.True(t, bill.MeterReset)
}

func TestWaterBill_NegativeDeltaIsValid(t *testing.T) {
	// A reading below the previous month usually means a meter was replaced
	// without the reset flag. The engine reports the negative figure as data
	// rather than guessing.
	cfg := billing.DefaultConfig()
	readings := map[string]decimal.Decimal{
		"2025Feb": d(80),
		"2025Mar": d(5),
	}

	bill := cfg.WaterBill(readings, nil, billing.Period{Year: 2025, Month: 2}, d(0.25))

	require.False(t, bill.Indeterminate())
	assertDecimal(t, -750, *bill.Units, "units")
	assertDecimal(t, -188, *bill.Amount, "amount")
}

func TestWaterBill_AmountRoundsToWholeCurrency(t *testing.T) {
	cfg := billing.DefaultConfig()
	readings := map[string]decimal.Decimal{
		"2025Feb": d(10),
		"2025Mar": d(13), // 30 units × 0.25 = 7.5
	}

	bill := cfg.WaterBill(readings, nil, billing.Period{Year: 2025, Month: 2}, d(0.25))

	require.False(t, bill.Indeterminate())
	assertDecimal(t, 8, *bill.Amount, "amount")
}

func TestWaterBill_JanuaryLooksBackAcrossYear(t *testing.T) {
	cfg := billing.DefaultConfig()
	readings := map[string]decimal.Decimal{
		"2024Dec": d(40),
		"2025Jan": d(46),
	}

	bill := cfg.WaterBill(readings, nil, billing.Period{Year: 2025, Month: 0}, d(0.25))

	require.False(t, bill.Indeterminate())
	assertDecimal(t, 60, *bill.Units, "units")
	assertDecimal(t, 15, *bill.Amount, "amount")
}

// =============================================================================
// RATE RESOLUTION TESTS
// =============================================================================

func TestEffectiveWaterRate(t *testing.T) {
	cfg := billing.DefaultConfig()
	cfg.DiscountedRooms = map[string]bool{"R2": true}

	standard := &billing.Tenancy{RoomID: "R1"}
	assertDecimal(t, 0.25, standard.EffectiveWaterRate(cfg), "standard room rate")

	discounted := &billing.Tenancy{RoomID: "R2"}
	assertDecimal(t, 0.20, discounted.EffectiveWaterRate(cfg), "discounted room rate")

	// An explicit per-tenancy override beats both.
	override := &billing.Tenancy{RoomID: "R2", WaterRate: dp(0.30)}
	assertDecimal(t, 0.30, override.EffectiveWaterRate(cfg), "override rate")
}

func TestTenancyWaterBill_UsesEffectiveRate(t *testing.T) {
	cfg := billing.DefaultConfig()
	cfg.DiscountedRooms = map[string]bool{"R2": true}

	ten := &billing.Tenancy{
		RoomID: "R2",
		Readings: map[string]decimal.Decimal{
			"2025Feb": d(80),
			"2025Mar": d(100),
		},
	}

	bill := cfg.TenancyWaterBill(ten, billing.Period{Year: 2025, Month: 2})

	require.False(t, bill.Indeterminate())
	assertDecimal(t, 40, *bill.Amount, "amount") // 200 units × 0.20
}
