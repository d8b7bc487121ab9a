package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTHLY FINANCIAL AGGREGATOR
// =============================================================================

// MonthlyTotals sums collected rent, pending rent and water+service charges
// across the property for one month. Re-derivable purely from stored data;
// performs no writes.
type MonthlyTotals struct {
	RentCollected decimal.Decimal
	WaterCharges  decimal.Decimal
	GrandTotal    decimal.Decimal
	PendingRent   decimal.Decimal
}

// billingView is the record slice the aggregator actually reads: either the
// live tenancy fields or the archived snapshot's, chosen per month.
type billingView struct {
	rent         decimal.Decimal
	lastRent     decimal.Decimal
	lastRevision *time.Time
	readings     map[string]decimal.Decimal
	resets       map[string]bool
	rate         decimal.Decimal
	status       PaymentStatus
}

// MonthlyTotals aggregates one month across all rooms.
//
// Rules, per room with a linked tenancy:
//   - under confirmed eviction, the notice month and everything after it
//     contribute nothing: recovery happens through the settlement instead.
//     Without a notice date the exclusion starts at the current month.
//   - when the live record has no status for the month but the archived
//     snapshot does, the archived fields are used (tenant vacated
//     mid-reporting-period).
//   - rent is reconstructed historically: months before the last revision
//     took effect use the pre-revision figure.
//   - Paid months accrue rent plus water plus the service charge; Pending
//     months accrue rent only. Anything else contributes nothing.
func (c Config) MonthlyTotals(rooms []Room, tenancies []*Tenancy, p Period, now time.Time) MonthlyTotals {
	var totals MonthlyTotals
	if p.IsFuture(now) {
		return totals
	}

	byRoom := make(map[string]*Tenancy, len(tenancies))
	for _, t := range tenancies {
		byRoom[t.RoomID] = t
	}

	key := p.Key()
	for _, room := range rooms {
		t := byRoom[room.ID]
		if t == nil {
			continue
		}

		if t.EvictionConfirmed {
			exclusionStart := PeriodOf(now)
			if t.NoticeDate != nil {
				exclusionStart = PeriodOf(*t.NoticeDate)
			}
			if !p.Before(exclusionStart) {
				continue
			}
		}

		view := c.effectiveView(t, key)
		rent := view.rent
		if view.lastRevision != nil && p.Before(PeriodOf(*view.lastRevision)) {
			rent = view.lastRent
		}

		switch view.status {
		case PaymentPaid:
			totals.RentCollected = totals.RentCollected.Add(rent)
			water := c.WaterBill(view.readings, view.resets, p, view.rate)
			charge := c.ServiceCharge
			if water.Amount != nil {
				charge = charge.Add(*water.Amount)
			}
			totals.WaterCharges = totals.WaterCharges.Add(charge)
		case PaymentPending:
			totals.PendingRent = totals.PendingRent.Add(rent)
		}
	}

	totals.GrandTotal = totals.RentCollected.Add(totals.WaterCharges)
	return totals
}

// effectiveView picks live fields, falling back to the archived snapshot
// when the live record has no status for the month but the archive does.
func (c Config) effectiveView(t *Tenancy, key string) billingView {
	live := billingView{
		rent:         t.Rent,
		lastRent:     t.LastRent,
		lastRevision: t.LastRevision,
		readings:     t.Readings,
		resets:       t.MeterReset,
		rate:         t.EffectiveWaterRate(c),
		status:       t.Payments[key],
	}
	if live.status != PaymentUnset || t.Archived == nil {
		return live
	}

	a := t.Archived
	archivedStatus := a.Payments[key]
	if archivedStatus == PaymentUnset {
		return live
	}
	rate := c.RoomWaterRate(t.RoomID)
	if a.WaterRate != nil {
		rate = *a.WaterRate
	}
	return billingView{
		rent:         a.Rent,
		lastRent:     a.LastRent,
		lastRevision: a.LastRevision,
		readings:     a.Readings,
		resets:       a.MeterReset,
		rate:         rate,
		status:       archivedStatus,
	}
}
