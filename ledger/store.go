/*
store.go - Persistence interface for the grant ledger

PURPOSE:
  Defines the interface between the ledger core and the database. Any
  ordered store works: the engine only needs insert, ordered retrieval,
  and a targeted point-quantity update.

CONTRACT:
  - Grants are append-only: Insert is the only way a grant comes into
    existence. There is no Delete.
  - UpdatePoints is the only mutation, and it only ever lowers a
    grant's remaining points (the allocator guarantees this; the store
    does not re-check).
  - AllByTimestamp returns grants in ascending timestamp order with a
    deterministic tie-break (insertion order), which is the consumption
    order the allocator relies on.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite, default
  - store/postgres: PostgreSQL via DATABASE_URL
  - ledger/store: in-memory, for tests and dev

SEE ALSO:
  - service.go: runs spend allocation inside WithTx
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store handles persistence of grants.
type Store interface {
	// Insert persists a new grant and returns its assigned id.
	Insert(ctx context.Context, payer string, points decimal.Decimal, ts time.Time) (GrantID, error)

	// AllByTimestamp returns every grant, ascending by timestamp.
	// Timestamp ties are broken by insertion order, deterministically.
	AllByTimestamp(ctx context.Context) ([]Grant, error)

	// UpdatePoints sets a grant's remaining points. Returns
	// ErrGrantNotFound if the id does not exist.
	UpdatePoints(ctx context.Context, id GrantID, points decimal.Decimal) error
}

// TxStore wraps Store with transaction support. Spend execution reads
// its snapshot and writes all deductions inside a single WithTx so the
// ledger is never left partially debited.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error,
	// the transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
