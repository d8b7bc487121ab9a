/*
Package sqlite provides a SQLite-backed implementation of billing.TenancyStore.

PURPOSE:
  Persists rooms and tenancy records. The per-month maps (meter readings,
  reset flags, payment statuses, paid totals) and the archived-tenant
  snapshot keep their document shape: they are stored as JSON columns, so
  the schema survives the schemaless source data without exploding into
  per-month rows.

ATOMIC VACATE:
  ArchiveTenancy is a single guarded UPDATE inside a transaction: the
  archive snapshot is written, every live field cleared and status set to
  Vacant in one statement, and only when the row is still Occupied. A
  losing racer gets ErrAlreadyVacated, never a half-archived record.

ONE ACTIVE TENANCY PER ROOM:
  Enforced by a partial unique index on room_id for Occupied rows, plus an
  explicit check in SaveTenancy so callers get ErrRoomOccupied instead of a
  raw constraint failure.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/rent.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: interface definition and atomicity contract
  - billing/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// Store implements billing.TenancyStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check.
var _ billing.TenancyStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		water_account TEXT,
		power_account TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tenancies (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		rent TEXT NOT NULL DEFAULT '0',
		water_rate TEXT,
		deposit TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'Vacant',
		move_in TEXT,
		last_revision TEXT,
		last_rent TEXT NOT NULL DEFAULT '0',
		no_revision INTEGER NOT NULL DEFAULT 0,
		eviction_confirmed INTEGER NOT NULL DEFAULT 0,
		notice_date TEXT,
		vacate_date TEXT,
		readings_json TEXT,
		resets_json TEXT,
		payments_json TEXT,
		paid_json TEXT,
		archived_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tenancies_room
		ON tenancies(room_id);

	-- A room has at most one active tenancy.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tenancies_room_occupied
		ON tenancies(room_id) WHERE status = 'Occupied';

	-- Sweep candidate scan (hot path for the hourly run)
	CREATE INDEX IF NOT EXISTS idx_tenancies_eviction_due
		ON tenancies(status, vacate_date)
		WHERE vacate_date IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROOMS
// =============================================================================

func (s *Store) SaveRoom(ctx context.Context, room billing.Room) error {
	if room.ID == "" {
		return billing.ErrMissingRecordID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rooms (id, number, water_account, power_account, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			water_account = excluded.water_account,
			power_account = excluded.power_account
	`
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		room.ID, room.Number, room.WaterAccount, room.PowerAccount,
		createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetRoom(ctx context.Context, id string) (*billing.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		room      billing.Room
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, number, water_account, power_account, created_at FROM rooms WHERE id = ?",
		id,
	).Scan(&room.ID, &room.Number, &room.WaterAccount, &room.PowerAccount, &createdAt)

	if err == sql.ErrNoRows {
		return nil, billing.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	room.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &room, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]billing.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, number, water_account, power_account, created_at FROM rooms ORDER BY number",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []billing.Room
	for rows.Next() {
		var (
			room      billing.Room
			createdAt string
		)
		if err := rows.Scan(&room.ID, &room.Number, &room.WaterAccount, &room.PowerAccount, &createdAt); err != nil {
			return nil, err
		}
		room.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// =============================================================================
// TENANCIES
// =============================================================================

const tenancyColumns = `id, room_id, name, phone, email, rent, water_rate, deposit,
	status, move_in, last_revision, last_rent, no_revision, eviction_confirmed,
	notice_date, vacate_date, readings_json, resets_json, payments_json, paid_json,
	archived_json, created_at, updated_at`

func (s *Store) SaveTenancy(ctx context.Context, t billing.Tenancy) error {
	if t.ID == "" {
		return billing.ErrMissingRecordID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// One active tenancy per room.
	if t.Status == billing.StatusOccupied {
		var existing string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM tenancies WHERE room_id = ? AND status = 'Occupied' AND id != ?",
			t.RoomID, t.ID,
		).Scan(&existing)
		if err == nil {
			return billing.ErrRoomOccupied
		}
		if err != sql.ErrNoRows {
			return err
		}
	}

	now := time.Now().UTC()
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := t.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	readingsJSON, err := marshalMap(t.Readings)
	if err != nil {
		return fmt.Errorf("failed to encode readings: %w", err)
	}
	resetsJSON, err := marshalMap(t.MeterReset)
	if err != nil {
		return fmt.Errorf("failed to encode resets: %w", err)
	}
	paymentsJSON, err := marshalMap(t.Payments)
	if err != nil {
		return fmt.Errorf("failed to encode payments: %w", err)
	}
	paidJSON, err := marshalMap(t.PaidTotals)
	if err != nil {
		return fmt.Errorf("failed to encode paid totals: %w", err)
	}
	var archivedJSON any
	if t.Archived != nil {
		b, err := json.Marshal(t.Archived)
		if err != nil {
			return fmt.Errorf("failed to encode archive: %w", err)
		}
		archivedJSON = string(b)
	}

	query := `
		INSERT INTO tenancies (` + tenancyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			room_id = excluded.room_id,
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			rent = excluded.rent,
			water_rate = excluded.water_rate,
			deposit = excluded.deposit,
			status = excluded.status,
			move_in = excluded.move_in,
			last_revision = excluded.last_revision,
			last_rent = excluded.last_rent,
			no_revision = excluded.no_revision,
			eviction_confirmed = excluded.eviction_confirmed,
			notice_date = excluded.notice_date,
			vacate_date = excluded.vacate_date,
			readings_json = excluded.readings_json,
			resets_json = excluded.resets_json,
			payments_json = excluded.payments_json,
			paid_json = excluded.paid_json,
			archived_json = excluded.archived_json,
			updated_at = excluded.updated_at
	`

	_, err = tx.ExecContext(ctx, query,
		t.ID, t.RoomID, t.Name, t.Phone, t.Email,
		t.Rent.String(), nullDecimal(t.WaterRate), t.Deposit.String(),
		string(t.Status), nullDate(t.MoveIn), nullDate(t.LastRevision), t.LastRent.String(),
		boolInt(t.NoRevision), boolInt(t.EvictionConfirmed),
		nullDate(t.NoticeDate), nullDate(t.VacateDate),
		readingsJSON, resetsJSON, paymentsJSON, paidJSON, archivedJSON,
		createdAt.Format(time.RFC3339), updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_tenancies_room_occupied") {
			return billing.ErrRoomOccupied
		}
		return fmt.Errorf("failed to save tenancy: %w", err)
	}

	return tx.Commit()
}

func (s *Store) GetTenancy(ctx context.Context, id string) (*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+tenancyColumns+" FROM tenancies WHERE id = ?", id)
	t, err := scanTenancy(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrTenancyNotFound
	}
	return t, err
}

func (s *Store) GetTenancyByRoom(ctx context.Context, roomID string) (*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+tenancyColumns+" FROM tenancies WHERE room_id = ? ORDER BY updated_at DESC LIMIT 1",
		roomID)
	t, err := scanTenancy(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrTenancyNotFound
	}
	return t, err
}

func (s *Store) ListTenancies(ctx context.Context) ([]*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTenancies(ctx,
		"SELECT "+tenancyColumns+" FROM tenancies ORDER BY room_id")
}

// ListEvictionDue returns sweep candidates: Occupied tenancies whose vacate
// date has passed, most recently updated first so the sweep's per-room
// dedupe keeps the freshest record. Bounded page.
func (s *Store) ListEvictionDue(ctx context.Context, asOf time.Time) ([]*billing.Tenancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTenancies(ctx, `
		SELECT `+tenancyColumns+` FROM tenancies
		WHERE status = 'Occupied' AND vacate_date IS NOT NULL AND vacate_date <= ?
		ORDER BY updated_at DESC
		LIMIT ?`,
		asOf.UTC().Format(time.RFC3339), billing.EvictionDuePageSize)
}

// ArchiveTenancy applies the full vacate batch as one guarded UPDATE: the
// archive snapshot written, every live field cleared, status set Vacant,
// and only when the row is still Occupied. The guard runs immediately
// before the write, so a human finalize racing the sweep loses cleanly
// with ErrAlreadyVacated.
func (s *Store) ArchiveTenancy(ctx context.Context, id string, archived billing.ArchivedTenant) error {
	if id == "" {
		return billing.ErrMissingRecordID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	archivedJSON, err := json.Marshal(archived)
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tenancies SET
			name = '', phone = '', email = '',
			rent = '0', water_rate = NULL, deposit = '0',
			move_in = NULL, last_revision = NULL, last_rent = '0',
			no_revision = 0, eviction_confirmed = 0,
			notice_date = NULL, vacate_date = NULL,
			readings_json = NULL, resets_json = NULL,
			payments_json = NULL, paid_json = NULL,
			archived_json = ?, status = 'Vacant', updated_at = ?
		WHERE id = ? AND status = 'Occupied'`,
		string(archivedJSON), archived.ArchivedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to archive tenancy: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var roomID, updatedAt string
		err := tx.QueryRowContext(ctx,
			"SELECT room_id, updated_at FROM tenancies WHERE id = ?", id,
		).Scan(&roomID, &updatedAt)
		if err == sql.ErrNoRows {
			return billing.ErrTenancyNotFound
		}
		if err != nil {
			return err
		}
		at, _ := time.Parse(time.RFC3339, updatedAt)
		return &billing.VacateRaceError{TenancyID: id, RoomID: roomID, At: at}
	}

	return tx.Commit()
}

// =============================================================================
// SCANNING
// =============================================================================

func (s *Store) queryTenancies(ctx context.Context, query string, args ...any) ([]*billing.Tenancy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenancies: %w", err)
	}
	defer rows.Close()

	var tenancies []*billing.Tenancy
	for rows.Next() {
		t, err := scanTenancy(rows)
		if err != nil {
			return nil, err
		}
		tenancies = append(tenancies, t)
	}
	return tenancies, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenancy(row rowScanner) (*billing.Tenancy, error) {
	var (
		t            billing.Tenancy
		rent         string
		waterRate    sql.NullString
		deposit      string
		status       string
		moveIn       sql.NullString
		lastRevision sql.NullString
		lastRent     string
		noRevision   int
		evictConf    int
		noticeDate   sql.NullString
		vacateDate   sql.NullString
		readingsJSON sql.NullString
		resetsJSON   sql.NullString
		paymentsJSON sql.NullString
		paidJSON     sql.NullString
		archivedJSON sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := row.Scan(
		&t.ID, &t.RoomID, &t.Name, &t.Phone, &t.Email,
		&rent, &waterRate, &deposit, &status,
		&moveIn, &lastRevision, &lastRent, &noRevision, &evictConf,
		&noticeDate, &vacateDate,
		&readingsJSON, &resetsJSON, &paymentsJSON, &paidJSON, &archivedJSON,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Rent = parseDecimal(rent)
	if waterRate.Valid && waterRate.String != "" {
		d := parseDecimal(waterRate.String)
		t.WaterRate = &d
	}
	t.Deposit = parseDecimal(deposit)
	t.Status = billing.TenancyStatus(status)
	t.MoveIn = parseNullDate(moveIn)
	t.LastRevision = parseNullDate(lastRevision)
	t.LastRent = parseDecimal(lastRent)
	t.NoRevision = noRevision != 0
	t.EvictionConfirmed = evictConf != 0
	t.NoticeDate = parseNullDate(noticeDate)
	t.VacateDate = parseNullDate(vacateDate)

	unmarshalMap(readingsJSON, &t.Readings)
	unmarshalMap(resetsJSON, &t.MeterReset)
	unmarshalMap(paymentsJSON, &t.Payments)
	unmarshalMap(paidJSON, &t.PaidTotals)
	if archivedJSON.Valid && archivedJSON.String != "" {
		var archived billing.ArchivedTenant
		if err := json.Unmarshal([]byte(archivedJSON.String), &archived); err == nil {
			t.Archived = &archived
		}
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}

// =============================================================================
// CODEC HELPERS
// =============================================================================

func marshalMap[V any](m map[string]V) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalMap[V any](col sql.NullString, dst *map[string]V) {
	if !col.Valid || col.String == "" {
		return
	}
	json.Unmarshal([]byte(col.String), dst)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullDate(col sql.NullString) *time.Time {
	if !col.Valid || col.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, col.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
