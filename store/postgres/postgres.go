/*
Package postgres provides a PostgreSQL-backed implementation of
ledger.TxStore.

Selected at startup when DATABASE_URL is set. Unlike the SQLite store,
concurrency control is left to the database: WithTx runs at the
SERIALIZABLE isolation level so a spend's snapshot read and deduction
writes are atomic with respect to other spends.

The seq column (BIGSERIAL) records insertion order and is the
deterministic tie-break for equal timestamps.
*/
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/warp/points-engine/ledger"
)

// Store implements ledger.TxStore using PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ ledger.TxStore = (*Store)(nil)

// New connects to the database at the given URL and migrates the schema.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
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
		seq BIGSERIAL,
		payer TEXT NOT NULL,
		points NUMERIC NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_grants_ts ON grants(ts, seq);
	CREATE INDEX IF NOT EXISTS idx_grants_payer ON grants(payer);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Insert persists a new grant and returns its assigned id.
func (s *Store) Insert(ctx context.Context, payer string, points decimal.Decimal, ts time.Time) (ledger.GrantID, error) {
	return s.insert(ctx, s.db, payer, points, ts)
}

func (s *Store) insert(ctx context.Context, db execer, payer string, points decimal.Decimal, ts time.Time) (ledger.GrantID, error) {
	id := ledger.GrantID(uuid.NewString())

	_, err := db.ExecContext(ctx,
		`INSERT INTO grants (id, payer, points, ts) VALUES ($1, $2, $3, $4)`,
		id, payer, points.String(), ts.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert grant: %w", err)
	}

	return id, nil
}

// AllByTimestamp returns every grant, ascending by timestamp, ties
// broken by insertion order (seq).
func (s *Store) AllByTimestamp(ctx context.Context) ([]ledger.Grant, error) {
	return s.queryGrants(ctx, s.db)
}

func (s *Store) queryGrants(ctx context.Context, db execer) ([]ledger.Grant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, payer, points, ts FROM grants ORDER BY ts ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []ledger.Grant
	for rows.Next() {
		var (
			g      ledger.Grant
			points string
		)
		if err := rows.Scan(&g.ID, &g.Payer, &points, &g.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		if g.Points, err = decimal.NewFromString(points); err != nil {
			return nil, fmt.Errorf("failed to parse points %q: %w", points, err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// UpdatePoints sets a grant's remaining points.
func (s *Store) UpdatePoints(ctx context.Context, id ledger.GrantID, points decimal.Decimal) error {
	return s.updatePoints(ctx, s.db, id, points)
}

func (s *Store) updatePoints(ctx context.Context, db execer, id ledger.GrantID, points decimal.Decimal) error {
	res, err := db.ExecContext(ctx,
		`UPDATE grants SET points = $1 WHERE id = $2`, points.String(), id)
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

// WithTx executes fn within a SERIALIZABLE database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes everything through the open transaction.
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
