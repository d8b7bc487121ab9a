/*
sweep.go - Scheduled auto-vacate sweep

PURPOSE:
  Periodically finds tenancies whose eviction date has passed, computes
  their deposit settlement and archives them, resetting the room to Vacant.
  Uses the same billing.ComputeSettlement the interactive finalize uses, so
  the unattended path can never drift from the human one.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Candidate set re-queried at the start of every run (status Occupied AND
    eviction date passed), bounded page
  - Duplicate records for one room are deduplicated, keeping the most
    recently updated
  - The store re-checks status inside the archive batch; a record a human
    vacated between query and write surfaces as ErrAlreadyVacated and is
    skipped, never double-processed
  - One tenancy's failure is logged and skipped; it never aborts the run
  - Idempotent: once Vacant, a record never matches the trigger again, so
    re-running after a crash is safe

CONFIGURATION:
  - CheckInterval: how often to check (default: 1 hour)
  - Enabled: whether the sweep is active (default: true)

USAGE:
  sweep := NewVacateSweep(store, cfg)
  sweep.Start()
  // ... later
  sweep.Stop()

SEE ALSO:
  - billing/settlement.go: the settlement computation
  - billing/store.go: the atomic archive contract
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/rent-engine/billing"
)

// VacateSweep handles automated end-of-tenancy processing.
type VacateSweep struct {
	Store         billing.TenancyStore
	Config        billing.Config
	CheckInterval time.Duration
	Enabled       bool

	// Now is the clock; overridable in tests.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewVacateSweep creates a new sweep.
func NewVacateSweep(store billing.TenancyStore, cfg billing.Config) *VacateSweep {
	return &VacateSweep{
		Store:         store,
		Config:        cfg,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the sweep.
func (vs *VacateSweep) Start() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if !vs.Enabled {
		log.Println("[Sweep] Disabled, not starting")
		return
	}

	vs.ticker = time.NewTicker(vs.CheckInterval)
	vs.wg.Add(1)

	go vs.run()

	log.Printf("[Sweep] Started with check interval: %v", vs.CheckInterval)
}

// Stop stops the sweep.
func (vs *VacateSweep) Stop() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.ticker != nil {
		vs.ticker.Stop()
		close(vs.stop)
		vs.wg.Wait()
		log.Println("[Sweep] Stopped")
	}
}

func (vs *VacateSweep) run() {
	defer vs.wg.Done()

	// Run immediately on start
	vs.checkAndProcess()

	for {
		select {
		case <-vs.ticker.C:
			vs.checkAndProcess()
		case <-vs.stop:
			return
		}
	}
}

// SweepResult reports one run's outcome.
type SweepResult struct {
	Processed int
	Skipped   int
	Failed    int
}

func (vs *VacateSweep) checkAndProcess() SweepResult {
	ctx := context.Background()
	now := vs.Now()

	candidates, err := vs.Store.ListEvictionDue(ctx, now)
	if err != nil {
		log.Printf("[Sweep] Error listing eviction-due tenancies: %v", err)
		return SweepResult{}
	}

	var result SweepResult

	// Candidates arrive most recently updated first; keep one per room to
	// guard against duplicate/orphaned records.
	seenRooms := make(map[string]bool)

	for _, t := range candidates {
		if seenRooms[t.RoomID] {
			result.Skipped++
			continue
		}
		seenRooms[t.RoomID] = true

		if err := vs.processTenancy(ctx, t, now); err != nil {
			if errors.Is(err, billing.ErrAlreadyVacated) {
				result.Skipped++
				continue
			}
			log.Printf("[Sweep] Error processing tenancy %s (room %s): %v", t.ID, t.RoomID, err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	if result.Processed > 0 || result.Skipped > 0 || result.Failed > 0 {
		log.Printf("[Sweep] Completed: %d processed, %d skipped, %d failed",
			result.Processed, result.Skipped, result.Failed)
	}
	return result
}

func (vs *VacateSweep) processTenancy(ctx context.Context, t *billing.Tenancy, now time.Time) error {
	var settlement *billing.Settlement
	if t.NoticeDate != nil && t.VacateDate != nil {
		settlement = vs.Config.ComputeSettlement(t, *t.NoticeDate, *t.VacateDate, true)
	} else {
		// No notice date: vacate anyway, settlement stays nil and the
		// archive is flagged for manual follow-up by its absence.
		log.Printf("[Sweep] Tenancy %s (room %s) has no notice date; archiving without settlement", t.ID, t.RoomID)
	}

	archived := t.ArchiveSnapshot(settlement, "sweep", "eviction date passed", now)
	if err := vs.Store.ArchiveTenancy(ctx, t.ID, archived); err != nil {
		return err
	}

	log.Printf("[Sweep] Vacated tenancy %s (room %s)", t.ID, t.RoomID)
	return nil
}

// RunNow triggers an immediate check (for testing/admin).
func (vs *VacateSweep) RunNow() SweepResult {
	return vs.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (vs *VacateSweep) GetNextRunTime() time.Time {
	return vs.Now().Add(vs.CheckInterval)
}
