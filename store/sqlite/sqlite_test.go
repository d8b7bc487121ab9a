package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-engine/billing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDate(y int, m time.Month, day int) *time.Time {
	d := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func seedRoom(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.SaveRoom(context.Background(), billing.Room{ID: id, Number: id}))
}

// =============================================================================
// ROOM TESTS
// =============================================================================

func TestRoomRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room := billing.Room{
		ID:           "R1",
		Number:       "101",
		WaterAccount: "W-123",
		PowerAccount: "P-456",
		CreatedAt:    time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveRoom(ctx, room))

	got, err := s.GetRoom(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, room, *got)

	_, err = s.GetRoom(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrRoomNotFound)
}

func TestSaveRoom_UpsertKeepsCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRoom(ctx, billing.Room{ID: "R1", Number: "101", CreatedAt: created}))
	require.NoError(t, s.SaveRoom(ctx, billing.Room{ID: "R1", Number: "101-A", CreatedAt: time.Now()}))

	got, err := s.GetRoom(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "101-A", got.Number)
	assert.Equal(t, created, got.CreatedAt)
}

// =============================================================================
// TENANCY TESTS
// =============================================================================

func TestTenancyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "R1")

	rate := decimal.NewFromFloat(0.30)
	ten := billing.Tenancy{
		ID:                "T1",
		RoomID:            "R1",
		Name:              "Asha Devi",
		Phone:             "555-0101",
		Rent:              decimal.NewFromInt(5000),
		WaterRate:         &rate,
		Deposit:           decimal.NewFromInt(30000),
		Status:            billing.StatusOccupied,
		MoveIn:            testDate(2024, time.March, 1),
		EvictionConfirmed: true,
		NoticeDate:        testDate(2025, time.April, 1),
		VacateDate:        testDate(2025, time.May, 1),
		Readings: map[string]decimal.Decimal{
			"2025Feb": decimal.NewFromInt(80),
			"2025Mar": decimal.NewFromInt(100),
		},
		MeterReset: map[string]bool{"2025Feb": true},
		Payments:   map[string]billing.PaymentStatus{"2025Mar": billing.PaymentPaid},
	}
	require.NoError(t, s.SaveTenancy(ctx, ten))

	got, err := s.GetTenancy(ctx, "T1")
	require.NoError(t, err)

	assert.Equal(t, "Asha Devi", got.Name)
	assert.True(t, got.Rent.Equal(ten.Rent))
	require.NotNil(t, got.WaterRate)
	assert.True(t, got.WaterRate.Equal(rate))
	assert.Equal(t, billing.StatusOccupied, got.Status)
	assert.Equal(t, *ten.MoveIn, *got.MoveIn)
	assert.True(t, got.EvictionConfirmed)
	assert.True(t, got.Readings["2025Mar"].Equal(decimal.NewFromInt(100)))
	assert.True(t, got.MeterReset["2025Feb"])
	assert.Equal(t, billing.PaymentPaid, got.Payments["2025Mar"])

	_, err = s.GetTenancy(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrTenancyNotFound)
}

func TestSaveTenancy_OneOccupiedPerRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "R1")

	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID: "T1", RoomID: "R1", Status: billing.StatusOccupied,
	}))

	err := s.SaveTenancy(ctx, billing.Tenancy{
		ID: "T2", RoomID: "R1", Status: billing.StatusOccupied,
	})
	assert.ErrorIs(t, err, billing.ErrRoomOccupied)

	// A vacant record for the same room is fine.
	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID: "T3", RoomID: "R1", Status: billing.StatusVacant,
	}))

	// Re-saving the occupant itself is not a conflict.
	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID: "T1", RoomID: "R1", Status: billing.StatusOccupied, Name: "Updated",
	}))
}

func TestListEvictionDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "R1")
	seedRoom(t, s, "R2")
	seedRoom(t, s, "R3")

	save := func(id, room string, vacate *time.Time, status billing.TenancyStatus) {
		require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
			ID: id, RoomID: room, Status: status, VacateDate: vacate,
		}))
	}

	save("due", "R1", testDate(2025, time.February, 1), billing.StatusOccupied)
	save("notYet", "R2", testDate(2025, time.December, 1), billing.StatusOccupied)
	save("noDate", "R3", nil, billing.StatusOccupied)

	got, err := s.ListEvictionDue(ctx, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "due", got[0].ID)
}

func TestArchiveTenancy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "R1")

	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID:         "T1",
		RoomID:     "R1",
		Name:       "Asha Devi",
		Rent:       decimal.NewFromInt(5000),
		Status:     billing.StatusOccupied,
		NoticeDate: testDate(2025, time.April, 1),
		VacateDate: testDate(2025, time.May, 1),
	}))

	archivedAt := time.Date(2025, time.May, 2, 8, 0, 0, 0, time.UTC)
	archived := billing.ArchivedTenant{
		Name:       "Asha Devi",
		Rent:       decimal.NewFromInt(5000),
		ArchivedBy: "sweep",
		ArchivedAt: archivedAt,
		Reason:     "eviction date passed",
	}
	require.NoError(t, s.ArchiveTenancy(ctx, "T1", archived))

	got, err := s.GetTenancy(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusVacant, got.Status)
	assert.Empty(t, got.Name)
	assert.True(t, got.Rent.IsZero())
	assert.Nil(t, got.NoticeDate)
	assert.Nil(t, got.VacateDate)
	require.NotNil(t, got.Archived)
	assert.Equal(t, "Asha Devi", got.Archived.Name)
	assert.Equal(t, "sweep", got.Archived.ArchivedBy)

	// The freed room accepts a new occupant.
	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID: "T2", RoomID: "R1", Status: billing.StatusOccupied,
	}))
}

func TestArchiveTenancy_StatusGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "R1")

	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID: "T1", RoomID: "R1", Status: billing.StatusOccupied,
	}))

	archived := billing.ArchivedTenant{ArchivedBy: "admin", ArchivedAt: time.Now().UTC()}
	require.NoError(t, s.ArchiveTenancy(ctx, "T1", archived))

	// The second archive loses to the guard.
	err := s.ArchiveTenancy(ctx, "T1", archived)
	assert.ErrorIs(t, err, billing.ErrAlreadyVacated)

	var race *billing.VacateRaceError
	require.ErrorAs(t, err, &race)
	assert.Equal(t, "T1", race.TenancyID)
	assert.Equal(t, "R1", race.RoomID)

	err = s.ArchiveTenancy(ctx, "missing", archived)
	assert.ErrorIs(t, err, billing.ErrTenancyNotFound)
}

func TestGetTenancyByRoom_MostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "R1")

	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID: "old", RoomID: "R1", Status: billing.StatusVacant,
		UpdatedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.SaveTenancy(ctx, billing.Tenancy{
		ID: "new", RoomID: "R1", Status: billing.StatusOccupied,
		UpdatedAt: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}))

	got, err := s.GetTenancyByRoom(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)
}
