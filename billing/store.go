/*
store.go - Persistence interface for rooms and tenancies

PURPOSE:
  Defines the interface between the billing engine and the record store.
  The engine itself never writes; the sweep and the API layer read records,
  compute, and hand results back through this interface.

ATOMICITY CONTRACT:
  ArchiveTenancy is the one multi-field mutation: archive snapshot written,
  live fields cleared, status set to Vacant — all in a single batch. A
  partially archived record (archived but still Occupied) must never be
  externally observable. Implementations MUST re-check status == Occupied
  inside the batch and return ErrAlreadyVacated when the guard fails; this
  is what makes the sweep idempotent and race-tolerant.

IMPLEMENTATIONS:
  - store/sqlite: production store, maps persisted as JSON columns
  - billing/store: in-memory store for tests/dev
*/
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EvictionDuePageSize bounds how many candidates a single sweep run scans.
const EvictionDuePageSize = 100

// TenancyStore handles persistence of rooms and tenancy records.
type TenancyStore interface {
	SaveRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)

	SaveTenancy(ctx context.Context, t Tenancy) error
	GetTenancy(ctx context.Context, id string) (*Tenancy, error)
	GetTenancyByRoom(ctx context.Context, roomID string) (*Tenancy, error)
	ListTenancies(ctx context.Context) ([]*Tenancy, error)

	// ListEvictionDue returns Occupied tenancies whose vacate date is on or
	// before asOf, most recently updated first, capped at
	// EvictionDuePageSize.
	ListEvictionDue(ctx context.Context, asOf time.Time) ([]*Tenancy, error)

	// ArchiveTenancy atomically writes the archive snapshot, clears the
	// live fields and sets the tenancy Vacant. Returns ErrAlreadyVacated
	// when the tenancy is no longer Occupied at write time.
	ArchiveTenancy(ctx context.Context, id string, archived ArchivedTenant) error
}

// ArchiveSnapshot freezes the tenancy's current fields into an
// ArchivedTenant. The settlement may be nil (no notice date was available);
// such archives are flagged for manual follow-up by their nil settlement.
func (t *Tenancy) ArchiveSnapshot(settlement *Settlement, by, reason string, at time.Time) ArchivedTenant {
	return ArchivedTenant{
		Name:         t.Name,
		Phone:        t.Phone,
		Email:        t.Email,
		Rent:         t.Rent,
		WaterRate:    t.WaterRate,
		Deposit:      t.Deposit,
		MoveIn:       t.MoveIn,
		LastRevision: t.LastRevision,
		LastRent:     t.LastRent,
		NoticeDate:   t.NoticeDate,
		VacateDate:   t.VacateDate,
		Readings:     t.Readings,
		MeterReset:   t.MeterReset,
		Payments:     t.Payments,
		PaidTotals:   t.PaidTotals,
		Settlement:   settlement,
		ArchivedBy:   by,
		ArchivedAt:   at,
		Reason:       reason,
	}
}

// ClearForVacate resets the live fields after archiving, leaving only the
// room link, the archive and audit timestamps.
func (t *Tenancy) ClearForVacate(at time.Time) {
	t.Name = ""
	t.Phone = ""
	t.Email = ""
	t.Rent = decimal.Zero
	t.WaterRate = nil
	t.Deposit = decimal.Zero
	t.MoveIn = nil
	t.LastRevision = nil
	t.LastRent = decimal.Zero
	t.NoRevision = false
	t.EvictionConfirmed = false
	t.NoticeDate = nil
	t.VacateDate = nil
	t.Readings = nil
	t.MeterReset = nil
	t.Payments = nil
	t.PaidTotals = nil
	t.Status = StatusVacant
	t.UpdatedAt = at
}
