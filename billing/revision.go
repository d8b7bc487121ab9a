package billing

import "time"

// =============================================================================
// RENT REVISION SCHEDULER
// =============================================================================

// RevisionSkip explains why a tenancy is excluded from revision tracking.
type RevisionSkip string

const (
	SkipNone       RevisionSkip = ""
	SkipNoRevision RevisionSkip = "no_revision_flag"
	SkipEviction   RevisionSkip = "under_eviction"
	SkipNoBaseDate RevisionSkip = "no_date_available"
)

// RevisionStatus feeds the "revision due soon" badge. No side effects.
type RevisionStatus struct {
	Due           bool
	Overdue       bool
	DaysRemaining int
	NextDue       time.Time
	Skip          RevisionSkip
}

// RevisionStatus determines whether an annual rent review is due within the
// configured lookahead window. The base date is the last revision when one
// exists, else the move-in date; the review falls due exactly one calendar
// year later (same month/day).
func (c Config) RevisionStatus(t *Tenancy, today time.Time) RevisionStatus {
	if t.NoRevision {
		return RevisionStatus{Skip: SkipNoRevision}
	}
	if t.EvictionConfirmed {
		return RevisionStatus{Skip: SkipEviction}
	}

	base := t.LastRevision
	if base == nil {
		base = t.MoveIn
	}
	if base == nil {
		return RevisionStatus{Skip: SkipNoBaseDate}
	}

	nextDue := base.AddDate(1, 0, 0)
	remaining := daysUntil(today, nextDue)

	return RevisionStatus{
		Due:           remaining <= c.RevisionWindowDays,
		Overdue:       remaining < 0,
		DaysRemaining: remaining,
		NextDue:       nextDue,
	}
}
