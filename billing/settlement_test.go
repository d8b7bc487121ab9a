package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// SETTLEMENT TESTS
// =============================================================================

func TestComputeSettlement_FullSpan(t *testing.T) {
	cfg := billing.DefaultConfig()
	ten := &billing.Tenancy{
		RoomID:  "R1",
		Rent:    d(5000),
		Deposit: d(30000),
		Readings: map[string]decimal.Decimal{
			"2025Feb": d(100),
			"2025Mar": d(110),
		},
	}

	s := cfg.ComputeSettlement(ten, date(2025, time.March, 10), date(2025, time.May, 5), false)
	require.NotNil(t, s)

	assert.Equal(t, []string{"2025Mar", "2025Apr", "2025May"}, s.Months)

	// Rent: 3 covered months plus the flat one-month notice rent.
	assertDecimal(t, 15000, s.RentDeduction, "rent deduction")
	assertDecimal(t, 5000, s.MandatoryRent, "mandatory rent")

	// Water: only March is computable, (110-100)×10×0.25 = 25. April and May
	// have no readings and contribute zero.
	assertDecimal(t, 25, s.WaterDeduction, "water deduction")
	assert.Equal(t, []string{"2025Apr", "2025May"}, s.MissingWaterMonths)
	assertDecimal(t, 25, s.WaterByMonth["2025Mar"], "march water")
	assertDecimal(t, 0, s.WaterByMonth["2025Apr"], "april water")

	// Service: 60 per covered month.
	assertDecimal(t, 180, s.ServiceTotal, "service total")

	assertDecimal(t, 20205, s.TotalDeduction, "total deduction")
	assertDecimal(t, 9795, s.Refund, "refund")

	assert.False(t, s.Finalized)
	assert.False(t, s.AutoGenerated)
}

func TestComputeSettlement_SameMonth(t *testing.T) {
	// Notice and vacate in the same month still bill one full month plus the
	// mandatory notice month, so rent-related deductions come to 2× rent.
	cfg := billing.DefaultConfig()
	ten := &billing.Tenancy{RoomID: "R1", Rent: d(4000), Deposit: d(20000)}

	s := cfg.ComputeSettlement(ten, date(2025, time.March, 1), date(2025, time.March, 28), false)
	require.NotNil(t, s)

	assert.Equal(t, []string{"2025Mar"}, s.Months)
	assertDecimal(t, 4000, s.RentDeduction, "rent deduction")
	assertDecimal(t, 4000, s.MandatoryRent, "mandatory rent")
	assertDecimal(t, 60, s.ServiceTotal, "service total")
}

func TestComputeSettlement_RefundSign(t *testing.T) {
	cfg := billing.DefaultConfig()

	// Two covered months at 10000: deductions are 20000 + 10000 + 0 + 120.
	ten := &billing.Tenancy{RoomID: "R1", Rent: d(10000), Deposit: d(30000)}
	s := cfg.ComputeSettlement(ten, date(2025, time.April, 20), date(2025, time.May, 10), false)
	require.NotNil(t, s)
	assertDecimal(t, -120, s.Refund, "refund") // tenant owes the property

	ten.Deposit = d(50000)
	s = cfg.ComputeSettlement(ten, date(2025, time.April, 20), date(2025, time.May, 10), false)
	require.NotNil(t, s)
	assertDecimal(t, 19880, s.Refund, "refund") // owed back to tenant
}

func TestComputeSettlement_NoSettlementPossible(t *testing.T) {
	cfg := billing.DefaultConfig()
	ten := &billing.Tenancy{RoomID: "R1", Rent: d(5000), Deposit: d(30000)}

	assert.Nil(t, cfg.ComputeSettlement(ten, time.Time{}, date(2025, time.May, 5), false),
		"zero notice date")
	assert.Nil(t, cfg.ComputeSettlement(ten, date(2025, time.May, 5), time.Time{}, false),
		"zero vacate date")
	assert.Nil(t, cfg.ComputeSettlement(ten, date(2025, time.May, 5), date(2025, time.March, 1), false),
		"vacate before notice")
}

func TestComputeSettlement_UsesDiscountedRoomRate(t *testing.T) {
	cfg := billing.DefaultConfig()
	cfg.DiscountedRooms = map[string]bool{"R2": true}

	ten := &billing.Tenancy{
		RoomID:  "R2",
		Rent:    d(5000),
		Deposit: d(30000),
		Readings: map[string]decimal.Decimal{
			"2025Feb": d(100),
			"2025Mar": d(120),
		},
	}

	s := cfg.ComputeSettlement(ten, date(2025, time.March, 1), date(2025, time.March, 31), false)
	require.NotNil(t, s)

	assertDecimal(t, 0.20, s.WaterRate, "water rate")
	assertDecimal(t, 40, s.WaterDeduction, "water deduction") // 200 units × 0.20
}

func TestComputeSettlement_CrossYearSpan(t *testing.T) {
	cfg := billing.DefaultConfig()
	ten := &billing.Tenancy{RoomID: "R1", Rent: d(3000), Deposit: d(15000)}

	s := cfg.ComputeSettlement(ten, date(2024, time.December, 15), date(2025, time.January, 20), false)
	require.NotNil(t, s)

	assert.Equal(t, []string{"2024Dec", "2025Jan"}, s.Months)
	assertDecimal(t, 6000, s.RentDeduction, "rent deduction")
}

func TestSettlementFinalize(t *testing.T) {
	cfg := billing.DefaultConfig()
	ten := &billing.Tenancy{RoomID: "R1", Rent: d(5000), Deposit: d(30000)}

	s := cfg.ComputeSettlement(ten, date(2025, time.March, 1), date(2025, time.March, 31), true)
	require.NotNil(t, s)
	assert.True(t, s.AutoGenerated)

	s.Finalize()
	assert.True(t, s.Finalized)
	assert.False(t, s.AutoGenerated)
}
