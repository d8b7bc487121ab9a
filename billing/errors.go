/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Note that an indeterminate computation (missing meter reading, inverted
  settlement range) is NOT an error in this package: it is modeled as nil
  result data that callers must check. Errors here cover persistence and
  identity failures only.

USAGE:
  if errors.Is(err, billing.ErrAlreadyVacated) {
      // lost the race to a human finalize; safe to skip
  }
*/
package billing

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRoomNotFound is returned when a referenced room doesn't exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrTenancyNotFound is returned when a referenced tenancy doesn't exist.
	ErrTenancyNotFound = errors.New("tenancy not found")

	// ErrMissingRecordID is returned when a write is attempted against a
	// record with no identifying fields. Fail fast rather than silently
	// proceed.
	ErrMissingRecordID = errors.New("record id required")

	// ErrRoomOccupied is returned when creating a tenancy for a room that
	// already has an active one. A room has at most one active tenancy.
	ErrRoomOccupied = errors.New("room already has an active tenancy")

	// ErrAlreadyVacated is returned when an archive batch finds the tenancy
	// no longer Occupied. Expected under sweep/human races; safe to skip.
	ErrAlreadyVacated = errors.New("tenancy already vacated")

	// ErrSettlementFinalized is returned when overwriting a finalized
	// settlement snapshot. Finalized snapshots are immutable.
	ErrSettlementFinalized = errors.New("settlement already finalized")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// VacateRaceError reports which tenancy lost the archive race and when.
type VacateRaceError struct {
	TenancyID string
	RoomID    string
	At        time.Time
}

func (e *VacateRaceError) Error() string {
	return fmt.Sprintf("tenancy %s (room %s) already vacated at %s",
		e.TenancyID, e.RoomID, e.At.Format("2006-01-02"))
}

func (e *VacateRaceError) Unwrap() error { return ErrAlreadyVacated }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrTenancyNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingRecordID) ||
		errors.Is(err, ErrRoomOccupied) ||
		errors.Is(err, ErrSettlementFinalized)
}
