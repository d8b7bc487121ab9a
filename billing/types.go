/*
Package billing provides the core rent and utility billing engine.

PURPOSE:
  This package contains the canonical implementation of all money-bearing
  business logic for the property: water meter billing, rent revision
  scheduling, monthly financial aggregation, and eviction settlement. The
  interactive API layer and the unattended vacate sweep both call into
  this single implementation, so the numbers can never drift between the
  two surfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Room: static physical unit (reference data, rarely mutated)
  - Tenancy: one occupancy episode of a room, with commercial terms and
    per-month billing history
  - ArchivedTenant: frozen copy of a tenancy taken at vacate time
  - Settlement: computed deposit division at move-out
  - PaymentStatus: closed enum over the stored status strings

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every currency and meter figure
  2. Indeterminate-as-data: a missing meter reading yields nil result
     fields, never an error
  3. Purity: computation functions take records in, return results out;
     persistence belongs to the caller

SEE ALSO:
  - config.go: injected billing constants (rates, service charge)
  - water.go, revision.go, aggregate.go, settlement.go: the calculators
  - store.go: persistence interface consumed by the sweep
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROOM - Static physical unit
// =============================================================================

// Room is immutable reference data: created once at setup, rarely touched.
type Room struct {
	ID           string // door/unit code, the identifier tenancies link to
	Number       string // display key shown in tables
	WaterAccount string // utility account numbers
	PowerAccount string
	CreatedAt    time.Time
}

// =============================================================================
// TENANCY - One occupancy episode of a room
// =============================================================================

type TenancyStatus string

const (
	StatusOccupied    TenancyStatus = "Occupied"
	StatusVacant      TenancyStatus = "Vacant"
	StatusMaintenance TenancyStatus = "Maintenance"
)

// Tenancy is the mutable aggregate: identity, commercial terms, lifecycle
// state, eviction sub-state, and per-month billing maps keyed by month label
// (see period.go for label construction).
type Tenancy struct {
	ID     string
	RoomID string

	// Identity
	Name  string
	Phone string
	Email string

	// Commercial terms
	Rent      decimal.Decimal
	WaterRate *decimal.Decimal // per-unit override; nil = room default applies
	Deposit   decimal.Decimal

	// Lifecycle
	Status       TenancyStatus
	MoveIn       *time.Time
	LastRevision *time.Time      // when rent was last revised
	LastRent     decimal.Decimal // rent value before the most recent revision

	// Eviction sub-state
	EvictionConfirmed bool
	NoticeDate        *time.Time
	VacateDate        *time.Time
	NoRevision        bool // permanently excluded from annual revision tracking

	// Per-period maps, keyed by month label. Absence of a key means the
	// value was never recorded for that month (distinct from zero).
	Readings   map[string]decimal.Decimal
	MeterReset map[string]bool
	Payments   map[string]PaymentStatus
	PaidTotals map[string]decimal.Decimal

	// Frozen copy of the previous occupancy, written at vacate time.
	Archived *ArchivedTenant

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveWaterRate resolves the billing rate for this tenancy: explicit
// override when present, else the room default from config.
func (t *Tenancy) EffectiveWaterRate(cfg Config) decimal.Decimal {
	if t.WaterRate != nil {
		return *t.WaterRate
	}
	return cfg.RoomWaterRate(t.RoomID)
}

// =============================================================================
// PAYMENT STATUS - Closed enum over the stored status strings
// =============================================================================

type PaymentStatus string

const (
	PaymentUnset    PaymentStatus = ""
	PaymentPaid     PaymentStatus = "Paid"
	PaymentPending  PaymentStatus = "Pending"
	PaymentRentOnly PaymentStatus = "Rent Only"
)

// ParsePaymentStatus maps the loosely stored status strings onto the closed
// enum. "None", empty and unknown values all collapse to PaymentUnset.
func ParsePaymentStatus(s string) PaymentStatus {
	switch s {
	case string(PaymentPaid):
		return PaymentPaid
	case string(PaymentPending):
		return PaymentPending
	case string(PaymentRentOnly):
		return PaymentRentOnly
	default:
		return PaymentUnset
	}
}

// =============================================================================
// ARCHIVED TENANT - Frozen occupancy snapshot
// =============================================================================

// ArchivedTenant is the frozen copy of a tenancy taken when the room is
// vacated, plus audit fields. It survives on the live record until the room
// is re-occupied.
type ArchivedTenant struct {
	Name  string
	Phone string
	Email string

	Rent      decimal.Decimal
	WaterRate *decimal.Decimal
	Deposit   decimal.Decimal

	MoveIn       *time.Time
	LastRevision *time.Time
	LastRent     decimal.Decimal
	NoticeDate   *time.Time
	VacateDate   *time.Time

	Readings   map[string]decimal.Decimal
	MeterReset map[string]bool
	Payments   map[string]PaymentStatus
	PaidTotals map[string]decimal.Decimal

	Settlement *Settlement // nil when no notice date was available

	// Audit
	ArchivedBy string // actor id, or "sweep" for the unattended path
	ArchivedAt time.Time
	Reason     string
}

// =============================================================================
// SETTLEMENT - Computed deposit division at move-out
// =============================================================================

// Settlement is derived, never independently mutated. Once Finalized it is
// immutable; auto-generated snapshots may be recomputed until finalization.
type Settlement struct {
	NoticeDate time.Time
	VacateDate time.Time

	Months []string // covered month labels, notice month through vacate month

	MonthlyRent   decimal.Decimal
	WaterRate     decimal.Decimal
	ServiceCharge decimal.Decimal // per month

	RentDeduction      decimal.Decimal // months × rent
	MandatoryRent      decimal.Decimal // flat one extra month, independent of span
	WaterDeduction     decimal.Decimal
	ServiceTotal       decimal.Decimal
	TotalDeduction     decimal.Decimal
	Deposit            decimal.Decimal
	Refund             decimal.Decimal // positive = owed back to tenant

	WaterByMonth   map[string]decimal.Decimal
	ServiceByMonth map[string]decimal.Decimal

	// Months whose water charge could not be computed (missing readings).
	// Their contribution is zero, so totals are understated until resolved.
	MissingWaterMonths []string

	Finalized     bool
	AutoGenerated bool
}
