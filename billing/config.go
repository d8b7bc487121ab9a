package billing

import "github.com/shopspring/decimal"

// =============================================================================
// CONFIG - Billing constants, injected everywhere
// =============================================================================

// Config collects every billing constant in one immutable value. Nothing in
// this package reads a literal rate or charge; callers construct a Config
// once (usually DefaultConfig) and pass it down.
type Config struct {
	// DefaultWaterRate is the per-unit currency rate applied when a tenancy
	// has no explicit override and the room is not discounted.
	DefaultWaterRate decimal.Decimal

	// DiscountedWaterRate applies to rooms listed in DiscountedRooms.
	DiscountedWaterRate decimal.Decimal
	DiscountedRooms     map[string]bool

	// UnitsMultiplier converts a meter dial delta into billable units.
	UnitsMultiplier decimal.Decimal

	// ServiceCharge is the fixed per-month charge added alongside water.
	ServiceCharge decimal.Decimal

	// RevisionWindowDays is the lookahead for the annual rent review badge.
	RevisionWindowDays int
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		DefaultWaterRate:    decimal.NewFromFloat(0.25),
		DiscountedWaterRate: decimal.NewFromFloat(0.20),
		DiscountedRooms:     map[string]bool{},
		UnitsMultiplier:     decimal.NewFromInt(10),
		ServiceCharge:       decimal.NewFromInt(60),
		RevisionWindowDays:  15,
	}
}

// RoomWaterRate returns the default per-unit rate for a room.
func (c Config) RoomWaterRate(roomID string) decimal.Decimal {
	if c.DiscountedRooms[roomID] {
		return c.DiscountedWaterRate
	}
	return c.DefaultWaterRate
}

// roundCurrency rounds to whole currency units. No fractional currency
// anywhere in the engine's outputs.
func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}
