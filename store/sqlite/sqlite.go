/*
Package sqlite provides a SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  The default durable store for the points engine. The same patterns
  apply to PostgreSQL (see store/postgres) - only minor SQL dialect
  differences.

SCHEMA:
  grants: one row per grant. Rows are inserted once and only the points
  column is ever updated (decrements by the spend executor). No DELETE.

ORDERING:
  AllByTimestamp orders by the ts column, then rowid. Timestamps are
  stored in a fixed-width UTC format so lexicographic order equals
  chronological order; rowid is monotonic per insert and gives the
  deterministic tie-break for equal timestamps.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/points.db")  // or ":memory:"
  defer store.Close()
  svc := ledger.NewService(store, publisher, log)

SEE ALSO:
  - ledger/store.go: interface definitions
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/points-engine/ledger"
)

// tsFormat is fixed-width UTC so string comparison in SQL matches
// chronological order down to the nanosecond.
const tsFormat = "2006-01-02T15:04:05.000000000Z"

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
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
	CREATE TABLE IF NOT EXISTS grants (
		id TEXT PRIMARY KEY,
		payer TEXT NOT NULL,
		points TEXT NOT NULL,
		ts TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grants_ts ON grants(ts);
	CREATE INDEX IF NOT EXISTS idx_grants_payer ON grants(payer);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// execer is satisfied by both *sql.DB and *sql.Tx, so the same
// statements run inside and outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Insert persists a new grant and returns its assigned id.
func (s *Store) Insert(ctx context.Context, payer string, points decimal.Decimal, ts time.Time) (ledger.GrantID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(ctx, s.db, payer, points, ts)
}

func (s *Store) insert(ctx context.Context, db execer, payer string, points decimal.Decimal, ts time.Time) (ledger.GrantID, error) {
	id := ledger.GrantID(uuid.NewString())

	_, err := db.ExecContext(ctx,
		`INSERT INTO grants (id, payer, points, ts, created_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		payer,
		points.String(),
		ts.UTC().Format(tsFormat),
		time.Now().UTC().Format(tsFormat),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert grant: %w", err)
	}

	return id, nil
}

// AllByTimestamp returns every grant, ascending by timestamp, ties
// broken by insertion order (rowid).
func (s *Store) AllByTimestamp(ctx context.Context) ([]ledger.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryGrants(ctx, s.db)
}

func (s *Store) queryGrants(ctx context.Context, db execer) ([]ledger.Grant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, payer, points, ts FROM grants ORDER BY ts ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []ledger.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

func scanGrant(rows *sql.Rows) (ledger.Grant, error) {
	var (
		g      ledger.Grant
		points string
		ts     string
	)

	if err := rows.Scan(&g.ID, &g.Payer, &points, &ts); err != nil {
		return g, fmt.Errorf("failed to scan grant: %w", err)
	}

	var err error
	if g.Points, err = decimal.NewFromString(points); err != nil {
		return g, fmt.Errorf("failed to parse points %q: %w", points, err)
	}
	if g.Timestamp, err = time.Parse(tsFormat, ts); err != nil {
		return g, fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
	}

	return g, nil
}

// UpdatePoints sets a grant's remaining points.
func (s *Store) UpdatePoints(ctx context.Context, id ledger.GrantID, points decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updatePoints(ctx, s.db, id, points)
}

func (s *Store) updatePoints(ctx context.Context, db execer, id ledger.GrantID, points decimal.Decimal) error {
	res, err := db.ExecContext(ctx,
		`UPDATE grants SET points = ? WHERE id = ?`, points.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update grant: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update grant: %w", err)
	}
	if n == 0 {
		return ledger.ErrGrantNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The mutex is held
// for the duration, so a spend's snapshot read and deduction writes are
// serialized against other writers.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes everything through the open transaction. The parent
// already holds the mutex.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Insert(ctx context.Context, payer string, points decimal.Decimal, t time.Time) (ledger.GrantID, error) {
	return ts.parent.insert(ctx, ts.tx, payer, points, t)
}

func (ts *txStore) AllByTimestamp(ctx context.Context) ([]ledger.Grant, error) {
	return ts.parent.queryGrants(ctx, ts.tx)
}

func (ts *txStore) UpdatePoints(ctx context.Context, id ledger.GrantID, points decimal.Decimal) error {
	return ts.parent.updatePoints(ctx, ts.tx, id, points)
}
