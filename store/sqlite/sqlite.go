/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements reservation.TxStore and notice.Store on a single SQLite file.
  Queries go through sqlx; the schema is versioned with golang-migrate.

INTERFACES IMPLEMENTED:
  reservation.Store:   Reservations, clients and the visit ledger
  reservation.TxStore: Atomic multi-write transactions
  notice.Store:        Staff notice board

KEY TABLES:
  clients:             Guest records, phone is UNIQUE
  client_visits:       (client_id, date) set, PRIMARY KEY makes inserts idempotent
  reservations:        One row per booking, with a version column
  reservation_history: Append-only audit entries, cascade-deleted with the booking
  notices:             Notice board

VERSIONED WRITES:
  UpdateReservation is a single conditional UPDATE:

    UPDATE reservations SET ..., version = version + 1
    WHERE id = ? AND version = ?

  Zero affected rows means the row is gone or another writer got there
  first; the store tells the two apart with a follow-up read.

APPEND-ONLY HISTORY:
  An update only inserts history rows past the stored length. A write
  that would shorten the history is rejected as an integrity failure.

ERROR CLASSIFICATION:
  Driver errors are wrapped in reservation.StorageError:
  - constraint violations -> KindIntegrity
  - read-only / permission / auth -> KindPermission
  - everything else -> KindUnavailable

CONCURRENCY:
  Uses sync.RWMutex for thread-safety around SQLite's single writer.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/jotaka.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - reservation/store.go: Interface definitions
  - reservation/store/memory.go: In-memory implementation for testing
  - migrations/: Versioned schema
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/walterpribes/jotakareservas1/notice"
	"github.com/walterpribes/jotakareservas1/reservation"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Timestamps are written fixed width so text order is time order.
// Reads also accept the shorter RFC3339Nano form.
const (
	timeLayout  = "2006-01-02T15:04:05.000000000Z07:00"
	parseLayout = time.RFC3339Nano
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path and applies
// pending migrations. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
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

func (s *Store) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, err
	}
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, "sqlite3", driver)
}

// migrate applies every pending migration. The migrate instance is not
// closed since closing it would close the shared *sql.DB.
func (s *Store) migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SchemaVersion reports the applied migration version.
func (s *Store) SchemaVersion() (uint, bool, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}

// =============================================================================
// ROWS
// =============================================================================

type reservationRow struct {
	ID                   string              `db:"id"`
	UnitID               string              `db:"unit_id"`
	ClientID             string              `db:"client_id"`
	ClientName           string              `db:"client_name"`
	ClientPhone          string              `db:"client_phone"`
	Date                 string              `db:"date"`
	Time                 string              `db:"time"`
	PeopleCount          int                 `db:"people_count"`
	TableNumber          string              `db:"table_number"`
	Area                 string              `db:"area"`
	ConfirmedPeopleCount sql.NullInt64       `db:"confirmed_people_count"`
	SpentAmount          decimal.NullDecimal `db:"spent_amount"`
	EventType            string              `db:"event_type"`
	SpecialNotes         string              `db:"special_notes"`
	NotesAuthor          string              `db:"notes_author"`
	Status               string              `db:"status"`
	CreatedAt            string              `db:"created_at"`
	LastModifiedBy       string              `db:"last_modified_by"`
	LastModifiedAt       string              `db:"last_modified_at"`
	Version              int                 `db:"version"`
}

const reservationColumns = `id, unit_id, client_id, client_name, client_phone, date, time,
	people_count, table_number, area, confirmed_people_count, spent_amount,
	event_type, special_notes, notes_author, status, created_at,
	last_modified_by, last_modified_at, version`

func (row reservationRow) toReservation() (reservation.Reservation, error) {
	r := reservation.Reservation{
		ID:             row.ID,
		UnitID:         reservation.UnitID(row.UnitID),
		ClientID:       row.ClientID,
		ClientName:     row.ClientName,
		ClientPhone:    row.ClientPhone,
		Date:           row.Date,
		Time:           row.Time,
		PeopleCount:    row.PeopleCount,
		TableNumber:    row.TableNumber,
		Area:           reservation.Area(row.Area),
		EventType:      row.EventType,
		SpecialNotes:   row.SpecialNotes,
		NotesAuthor:    row.NotesAuthor,
		Status:         reservation.Status(row.Status),
		LastModifiedBy: row.LastModifiedBy,
		Version:        row.Version,
	}
	if row.ConfirmedPeopleCount.Valid {
		n := int(row.ConfirmedPeopleCount.Int64)
		r.ConfirmedPeopleCount = &n
	}
	if row.SpentAmount.Valid {
		d := row.SpentAmount.Decimal
		r.SpentAmount = &d
	}
	var err error
	if r.CreatedAt, err = time.Parse(parseLayout, row.CreatedAt); err != nil {
		return r, fmt.Errorf("parse created_at: %w", err)
	}
	if row.LastModifiedAt != "" {
		if r.LastModifiedAt, err = time.Parse(parseLayout, row.LastModifiedAt); err != nil {
			return r, fmt.Errorf("parse last_modified_at: %w", err)
		}
	}
	return r, nil
}

func reservationArgs(r reservation.Reservation) []any {
	var confirmed sql.NullInt64
	if r.ConfirmedPeopleCount != nil {
		confirmed = sql.NullInt64{Int64: int64(*r.ConfirmedPeopleCount), Valid: true}
	}
	var spent decimal.NullDecimal
	if r.SpentAmount != nil {
		spent = decimal.NullDecimal{Decimal: *r.SpentAmount, Valid: true}
	}
	lastModifiedAt := ""
	if !r.LastModifiedAt.IsZero() {
		lastModifiedAt = r.LastModifiedAt.UTC().Format(timeLayout)
	}
	return []any{
		r.ClientName, r.ClientPhone, r.Date, r.Time, r.PeopleCount, r.TableNumber,
		string(r.Area), confirmed, spent, r.EventType, r.SpecialNotes, r.NotesAuthor,
		string(r.Status), r.LastModifiedBy, lastModifiedAt,
	}
}

type historyRow struct {
	ReservationID string `db:"reservation_id"`
	Seq           int    `db:"seq"`
	Actor         string `db:"actor"`
	Action        string `db:"action"`
	Timestamp     string `db:"timestamp"`
}

type clientRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Phone    string `db:"phone"`
	IsVip    bool   `db:"is_vip"`
	Notes    string `db:"notes"`
	TagsJSON string `db:"tags_json"`
}

type noticeRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Content     string `db:"content"`
	AuthorName  string `db:"author_name"`
	IsImportant bool   `db:"is_important"`
	CreatedAt   string `db:"created_at"`
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (s *Store) CreateReservation(ctx context.Context, r reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q sqlx.ExtContext) error {
		return s.createReservation(ctx, q, r)
	})
}

func (s *Store) createReservation(ctx context.Context, q sqlx.ExtContext, r reservation.Reservation) error {
	args := append([]any{r.ID, string(r.UnitID), r.ClientID}, reservationArgs(r)...)
	args = append(args, r.CreatedAt.UTC().Format(timeLayout))
	_, err := q.ExecContext(ctx, `
		INSERT INTO reservations (id, unit_id, client_id, client_name, client_phone, date, time,
			people_count, table_number, area, confirmed_people_count, spent_amount,
			event_type, special_notes, notes_author, status, last_modified_by, last_modified_at,
			created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, args...)
	if err != nil {
		return classify("create reservation", err)
	}
	return s.appendHistory(ctx, q, r.ID, 0, r.History)
}

func (s *Store) GetReservation(ctx context.Context, id string) (reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getReservation(ctx, s.db, id)
}

func (s *Store) getReservation(ctx context.Context, q sqlx.ExtContext, id string) (reservation.Reservation, error) {
	var row reservationRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.Reservation{}, &reservation.NotFoundError{Kind: "reservation", ID: id}
	}
	if err != nil {
		return reservation.Reservation{}, classify("get reservation", err)
	}
	r, err := row.toReservation()
	if err != nil {
		return reservation.Reservation{}, classify("get reservation", err)
	}
	histories, err := s.loadHistory(ctx, q, `reservation_id = ?`, id)
	if err != nil {
		return reservation.Reservation{}, err
	}
	r.History = histories[id]
	return r, nil
}

// UpdateReservation is a compare-and-swap on the version column.
func (s *Store) UpdateReservation(ctx context.Context, r reservation.Reservation, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q sqlx.ExtContext) error {
		return s.updateReservation(ctx, q, r, expectedVersion)
	})
}

func (s *Store) updateReservation(ctx context.Context, q sqlx.ExtContext, r reservation.Reservation, expectedVersion int) error {
	args := append(reservationArgs(r), r.ID, expectedVersion)
	res, err := q.ExecContext(ctx, `
		UPDATE reservations SET
			client_name = ?, client_phone = ?, date = ?, time = ?, people_count = ?,
			table_number = ?, area = ?, confirmed_people_count = ?, spent_amount = ?,
			event_type = ?, special_notes = ?, notes_author = ?, status = ?,
			last_modified_by = ?, last_modified_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, args...)
	if err != nil {
		return classify("update reservation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update reservation", err)
	}
	if n == 0 {
		var actual int
		err := sqlx.GetContext(ctx, q, &actual, `SELECT version FROM reservations WHERE id = ?`, r.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return &reservation.NotFoundError{Kind: "reservation", ID: r.ID}
		}
		if err != nil {
			return classify("update reservation", err)
		}
		return &reservation.ConflictError{ID: r.ID, Expected: expectedVersion, Actual: actual}
	}

	var stored int
	if err := sqlx.GetContext(ctx, q, &stored, `SELECT COUNT(*) FROM reservation_history WHERE reservation_id = ?`, r.ID); err != nil {
		return classify("update reservation", err)
	}
	if len(r.History) < stored {
		return &reservation.StorageError{
			Op:   "update reservation",
			Kind: reservation.KindIntegrity,
			Err:  fmt.Errorf("history of %s would shrink from %d to %d entries", r.ID, stored, len(r.History)),
		}
	}
	return s.appendHistory(ctx, q, r.ID, stored, r.History[stored:])
}

func (s *Store) appendHistory(ctx context.Context, q sqlx.ExtContext, id string, offset int, entries []reservation.HistoryEntry) error {
	for i, e := range entries {
		_, err := q.ExecContext(ctx, `
			INSERT INTO reservation_history (reservation_id, seq, actor, action, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, id, offset+i, e.Actor, e.Action, e.Timestamp.UTC().Format(timeLayout))
		if err != nil {
			return classify("append history", err)
		}
	}
	return nil
}

// loadHistory returns history entries grouped by reservation id, filtered by
// a condition on reservation_history.
func (s *Store) loadHistory(ctx context.Context, q sqlx.ExtContext, cond string, args ...any) (map[string][]reservation.HistoryEntry, error) {
	var rows []historyRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT reservation_id, seq, actor, action, timestamp
		FROM reservation_history WHERE `+cond+`
		ORDER BY reservation_id, seq
	`, args...)
	if err != nil {
		return nil, classify("load history", err)
	}
	out := make(map[string][]reservation.HistoryEntry)
	for _, row := range rows {
		ts, err := time.Parse(parseLayout, row.Timestamp)
		if err != nil {
			return nil, classify("load history", err)
		}
		out[row.ReservationID] = append(out[row.ReservationID], reservation.HistoryEntry{
			Actor:     row.Actor,
			Action:    row.Action,
			Timestamp: ts,
		})
	}
	return out, nil
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteReservation(ctx, s.db, id)
}

func (s *Store) deleteReservation(ctx context.Context, q sqlx.ExtContext, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return classify("delete reservation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &reservation.NotFoundError{Kind: "reservation", ID: id}
	}
	return nil
}

func (s *Store) ListReservations(ctx context.Context, f reservation.ReservationFilter) ([]reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listReservations(ctx, s.db, f)
}

func (s *Store) listReservations(ctx context.Context, q sqlx.ExtContext, f reservation.ReservationFilter) ([]reservation.Reservation, error) {
	where, args := reservationWhere(f)
	var rows []reservationRow
	err := sqlx.SelectContext(ctx, q, &rows, `SELECT `+reservationColumns+` FROM reservations`+where+
		` ORDER BY date, time, created_at, rowid`, args...)
	if err != nil {
		return nil, classify("list reservations", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	histories, err := s.loadHistory(ctx, q, `reservation_id IN (SELECT id FROM reservations`+where+`)`, args...)
	if err != nil {
		return nil, err
	}

	result := make([]reservation.Reservation, 0, len(rows))
	for _, row := range rows {
		r, err := row.toReservation()
		if err != nil {
			return nil, classify("list reservations", err)
		}
		r.History = histories[r.ID]
		result = append(result, r)
	}
	return result, nil
}

func (s *Store) CountReservations(ctx context.Context, f reservation.ReservationFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countReservations(ctx, s.db, f)
}

func (s *Store) countReservations(ctx context.Context, q sqlx.ExtContext, f reservation.ReservationFilter) (int, error) {
	where, args := reservationWhere(f)
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM reservations`+where, args...); err != nil {
		return 0, classify("count reservations", err)
	}
	return n, nil
}

func reservationWhere(f reservation.ReservationFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if f.UnitID != "" {
		add("unit_id = ?", string(f.UnitID))
	}
	if f.ClientID != "" {
		add("client_id = ?", f.ClientID)
	}
	if f.Date != "" {
		add("date = ?", f.Date)
	}
	if f.DateFrom != "" {
		add("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		add("date <= ?", f.DateTo)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) UpsertClient(ctx context.Context, c reservation.Client) (reservation.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertClient(ctx, s.db, c)
}

func (s *Store) upsertClient(ctx context.Context, q sqlx.ExtContext, c reservation.Client) (reservation.Client, error) {
	tags, err := json.Marshal(nonNil(c.Tags))
	if err != nil {
		return reservation.Client{}, fmt.Errorf("marshal tags: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO clients (id, name, phone, is_vip, notes, tags_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			name = excluded.name,
			is_vip = clients.is_vip OR excluded.is_vip
	`, c.ID, c.Name, c.Phone, c.IsVip, c.Notes, string(tags))
	if err != nil {
		return reservation.Client{}, classify("upsert client", err)
	}
	var id string
	if err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM clients WHERE phone = ?`, c.Phone); err != nil {
		return reservation.Client{}, classify("upsert client", err)
	}
	return s.getClient(ctx, q, id)
}

func (s *Store) GetClient(ctx context.Context, id string) (reservation.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getClient(ctx, s.db, id)
}

func (s *Store) getClient(ctx context.Context, q sqlx.ExtContext, id string) (reservation.Client, error) {
	var row clientRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT id, name, phone, is_vip, notes, tags_json FROM clients WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.Client{}, &reservation.NotFoundError{Kind: "client", ID: id}
	}
	if err != nil {
		return reservation.Client{}, classify("get client", err)
	}
	c, err := row.toClient()
	if err != nil {
		return reservation.Client{}, classify("get client", err)
	}
	if err := sqlx.SelectContext(ctx, q, &c.Visits, `SELECT date FROM client_visits WHERE client_id = ? ORDER BY date`, id); err != nil {
		return reservation.Client{}, classify("get client", err)
	}
	return c, nil
}

func (row clientRow) toClient() (reservation.Client, error) {
	c := reservation.Client{
		ID:    row.ID,
		Name:  row.Name,
		Phone: row.Phone,
		IsVip: row.IsVip,
		Notes: row.Notes,
	}
	if err := json.Unmarshal([]byte(row.TagsJSON), &c.Tags); err != nil {
		return c, fmt.Errorf("unmarshal tags: %w", err)
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context, f reservation.ClientFilter) ([]reservation.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listClients(ctx, s.db, f)
}

func (s *Store) listClients(ctx context.Context, q sqlx.ExtContext, f reservation.ClientFilter) ([]reservation.Client, error) {
	query := `SELECT id, name, phone, is_vip, notes, tags_json FROM clients WHERE 1 = 1`
	var args []any
	if f.NameContains != "" {
		query += ` AND LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(f.NameContains)+"%")
	}
	if f.PhoneContains != "" {
		query += ` AND phone LIKE ?`
		args = append(args, "%"+f.PhoneContains+"%")
	}
	query += ` ORDER BY name, id`

	var rows []clientRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, classify("list clients", err)
	}

	var visits []struct {
		ClientID string `db:"client_id"`
		Date     string `db:"date"`
	}
	if err := sqlx.SelectContext(ctx, q, &visits, `SELECT client_id, date FROM client_visits ORDER BY client_id, date`); err != nil {
		return nil, classify("list clients", err)
	}
	byClient := make(map[string][]string)
	for _, v := range visits {
		byClient[v.ClientID] = append(byClient[v.ClientID], v.Date)
	}

	result := make([]reservation.Client, 0, len(rows))
	for _, row := range rows {
		c, err := row.toClient()
		if err != nil {
			return nil, classify("list clients", err)
		}
		c.Visits = byClient[c.ID]
		result = append(result, c)
	}
	return result, nil
}

func (s *Store) UpdateClient(ctx context.Context, c reservation.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateClient(ctx, s.db, c)
}

func (s *Store) updateClient(ctx context.Context, q sqlx.ExtContext, c reservation.Client) error {
	tags, err := json.Marshal(nonNil(c.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE clients SET name = ?, phone = ?, is_vip = ?, notes = ?, tags_json = ?
		WHERE id = ?
	`, c.Name, c.Phone, c.IsVip, c.Notes, string(tags), c.ID)
	if err != nil {
		return classify("update client", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &reservation.NotFoundError{Kind: "client", ID: c.ID}
	}
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteClient(ctx, s.db, id)
}

// deleteClient relies on the reservations.client_id foreign key to refuse
// removing a referenced client.
func (s *Store) deleteClient(ctx context.Context, q sqlx.ExtContext, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return classify("delete client", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &reservation.NotFoundError{Kind: "client", ID: id}
	}
	return nil
}

// AddVisit is a set-insert. INSERT OR IGNORE on the composite primary key
// makes the check and the write one statement.
func (s *Store) AddVisit(ctx context.Context, clientID, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addVisit(ctx, s.db, clientID, date)
}

func (s *Store) addVisit(ctx context.Context, q sqlx.ExtContext, clientID, date string) (bool, error) {
	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT COUNT(*) FROM clients WHERE id = ?`, clientID); err != nil {
		return false, classify("add visit", err)
	}
	if exists == 0 {
		return false, &reservation.NotFoundError{Kind: "client", ID: clientID}
	}
	res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO client_visits (client_id, date) VALUES (?, ?)`, clientID, date)
	if err != nil {
		return false, classify("add visit", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("add visit", err)
	}
	return n > 0, nil
}

// =============================================================================
// NOTICES
// =============================================================================

func (s *Store) ListNotices(ctx context.Context) ([]notice.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []noticeRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT id, title, content, author_name, is_important, created_at
		FROM notices ORDER BY is_important DESC, created_at DESC
	`)
	if err != nil {
		return nil, classify("list notices", err)
	}
	result := make([]notice.Notice, 0, len(rows))
	for _, row := range rows {
		n, err := row.toNotice()
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

func (s *Store) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row noticeRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		SELECT id, title, content, author_name, is_important, created_at
		FROM notices WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return notice.Notice{}, notice.ErrNotFound
	}
	if err != nil {
		return notice.Notice{}, classify("get notice", err)
	}
	return row.toNotice()
}

func (s *Store) SaveNotice(ctx context.Context, n notice.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notices (id, title, content, author_name, is_important, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			is_important = excluded.is_important
	`, n.ID, n.Title, n.Content, n.AuthorName, n.IsImportant, n.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return classify("save notice", err)
	}
	return nil
}

func (s *Store) DeleteNotice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id)
	if err != nil {
		return classify("delete notice", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notice.ErrNotFound
	}
	return nil
}

func (row noticeRow) toNotice() (notice.Notice, error) {
	created, err := time.Parse(parseLayout, row.CreatedAt)
	if err != nil {
		return notice.Notice{}, classify("parse notice", err)
	}
	return notice.Notice{
		ID:          row.ID,
		Title:       row.Title,
		Content:     row.Content,
		AuthorName:  row.AuthorName,
		IsImportant: row.IsImportant,
		CreatedAt:   created,
	}, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store reservation.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// inTx runs a multi-statement write atomically. Callers hold s.mu.
func (s *Store) inTx(ctx context.Context, fn func(sqlx.ExtContext) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer sqlTx.Rollback()
	if err := fn(sqlTx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

type txStore struct {
	tx     *sqlx.Tx
	parent *Store
}

func (ts *txStore) CreateReservation(ctx context.Context, r reservation.Reservation) error {
	return ts.parent.createReservation(ctx, ts.tx, r)
}

func (ts *txStore) GetReservation(ctx context.Context, id string) (reservation.Reservation, error) {
	return ts.parent.getReservation(ctx, ts.tx, id)
}

func (ts *txStore) UpdateReservation(ctx context.Context, r reservation.Reservation, expectedVersion int) error {
	return ts.parent.updateReservation(ctx, ts.tx, r, expectedVersion)
}

func (ts *txStore) DeleteReservation(ctx context.Context, id string) error {
	return ts.parent.deleteReservation(ctx, ts.tx, id)
}

func (ts *txStore) ListReservations(ctx context.Context, f reservation.ReservationFilter) ([]reservation.Reservation, error) {
	return ts.parent.listReservations(ctx, ts.tx, f)
}

func (ts *txStore) CountReservations(ctx context.Context, f reservation.ReservationFilter) (int, error) {
	return ts.parent.countReservations(ctx, ts.tx, f)
}

func (ts *txStore) UpsertClient(ctx context.Context, c reservation.Client) (reservation.Client, error) {
	return ts.parent.upsertClient(ctx, ts.tx, c)
}

func (ts *txStore) GetClient(ctx context.Context, id string) (reservation.Client, error) {
	return ts.parent.getClient(ctx, ts.tx, id)
}

func (ts *txStore) ListClients(ctx context.Context, f reservation.ClientFilter) ([]reservation.Client, error) {
	return ts.parent.listClients(ctx, ts.tx, f)
}

func (ts *txStore) UpdateClient(ctx context.Context, c reservation.Client) error {
	return ts.parent.updateClient(ctx, ts.tx, c)
}

func (ts *txStore) DeleteClient(ctx context.Context, id string) error {
	return ts.parent.deleteClient(ctx, ts.tx, id)
}

func (ts *txStore) AddVisit(ctx context.Context, clientID, date string) (bool, error) {
	return ts.parent.addVisit(ctx, ts.tx, clientID, date)
}

// =============================================================================
// HELPERS
// =============================================================================

// classify wraps a driver error in a reservation.StorageError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := reservation.KindUnavailable
	var se sqlite3.Error
	switch {
	case errors.As(err, &se) && se.Code == sqlite3.ErrConstraint:
		kind = reservation.KindIntegrity
	case errors.As(err, &se) && (se.Code == sqlite3.ErrReadonly || se.Code == sqlite3.ErrPerm || se.Code == sqlite3.ErrAuth):
		kind = reservation.KindPermission
	case isUniqueConstraintError(err):
		kind = reservation.KindIntegrity
	case strings.Contains(err.Error(), "readonly database"):
		kind = reservation.KindPermission
	}
	return &reservation.StorageError{Op: op, Kind: kind, Err: err}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed"))
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

var (
	_ reservation.TxStore = (*Store)(nil)
	_ notice.Store        = (*Store)(nil)
)
