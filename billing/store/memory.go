// Package store provides TenancyStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	rooms     map[string]billing.Room
	tenancies map[string]*billing.Tenancy
	writes    int
}

func NewMemory() *Memory {
	return &Memory{
		rooms:     make(map[string]billing.Room),
		tenancies: make(map[string]*billing.Tenancy),
	}
}

// Writes returns the number of mutating operations applied. Test hook for
// verifying sweep idempotence (a no-op run performs zero writes).
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) SaveRoom(_ context.Context, room billing.Room) error {
	if room.ID == "" {
		return billing.ErrMissingRecordID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = room
	m.writes++
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id string) (*billing.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, billing.ErrRoomNotFound
	}
	return &room, nil
}

func (m *Memory) ListRooms(_ context.Context) ([]billing.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make([]billing.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Number < rooms[j].Number })
	return rooms, nil
}

func (m *Memory) SaveTenancy(_ context.Context, t billing.Tenancy) error {
	if t.ID == "" {
		return billing.ErrMissingRecordID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// One active tenancy per room.
	if t.Status == billing.StatusOccupied {
		for _, other := range m.tenancies {
			if other.ID != t.ID && other.RoomID == t.RoomID && other.Status == billing.StatusOccupied {
				return billing.ErrRoomOccupied
			}
		}
	}

	cp := t
	m.tenancies[t.ID] = &cp
	m.writes++
	return nil
}

func (m *Memory) GetTenancy(_ context.Context, id string) (*billing.Tenancy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenancies[id]
	if !ok {
		return nil, billing.ErrTenancyNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) GetTenancyByRoom(_ context.Context, roomID string) (*billing.Tenancy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *billing.Tenancy
	for _, t := range m.tenancies {
		if t.RoomID != roomID {
			continue
		}
		if best == nil || t.UpdatedAt.After(best.UpdatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, billing.ErrTenancyNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *Memory) ListTenancies(_ context.Context) ([]*billing.Tenancy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*billing.Tenancy, 0, len(m.tenancies))
	for _, t := range m.tenancies {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (m *Memory) ListEvictionDue(_ context.Context, asOf time.Time) ([]*billing.Tenancy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*billing.Tenancy
	for _, t := range m.tenancies {
		if t.Status != billing.StatusOccupied || t.VacateDate == nil {
			continue
		}
		if t.VacateDate.After(asOf) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > billing.EvictionDuePageSize {
		out = out[:billing.EvictionDuePageSize]
	}
	return out, nil
}

// ArchiveTenancy applies the vacate batch under the store lock. The status
// guard is re-checked here, not at query time, so a racing finalize makes
// this a clean ErrAlreadyVacated instead of a double archive.
func (m *Memory) ArchiveTenancy(_ context.Context, id string, archived billing.ArchivedTenant) error {
	if id == "" {
		return billing.ErrMissingRecordID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenancies[id]
	if !ok {
		return billing.ErrTenancyNotFound
	}
	if t.Status != billing.StatusOccupied {
		return &billing.VacateRaceError{TenancyID: t.ID, RoomID: t.RoomID, At: t.UpdatedAt}
	}

	cp := *t
	cp.Archived = &archived
	cp.ClearForVacate(archived.ArchivedAt)
	m.tenancies[id] = &cp
	m.writes++
	return nil
}
