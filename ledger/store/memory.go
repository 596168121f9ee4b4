// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	grants []ledger.Grant
	index  map[ledger.GrantID]int
}

func NewMemory() *Memory {
	return &Memory{index: make(map[ledger.GrantID]int)}
}

// Insert adds a grant, keeping the slice sorted by timestamp. Equal
// timestamps keep insertion order, which is the tie-break contract.
func (m *Memory) Insert(_ context.Context, payer string, points decimal.Decimal, ts time.Time) (ledger.GrantID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(payer, points, ts)
}

func (m *Memory) insertLocked(payer string, points decimal.Decimal, ts time.Time) (ledger.GrantID, error) {
	g := ledger.Grant{
		ID:        ledger.GrantID(uuid.NewString()),
		Payer:     payer,
		Points:    points,
		Timestamp: ts,
	}

	// Binary search for the insertion point. Search on After (strict)
	// so a tied timestamp lands after existing entries.
	i := sort.Search(len(m.grants), func(i int) bool {
		return m.grants[i].Timestamp.After(ts)
	})

	m.grants = append(m.grants, ledger.Grant{})
	copy(m.grants[i+1:], m.grants[i:])
	m.grants[i] = g

	m.reindexLocked()
	return g.ID, nil
}

func (m *Memory) reindexLocked() {
	for i, g := range m.grants {
		m.index[g.ID] = i
	}
}

func (m *Memory) AllByTimestamp(_ context.Context) ([]ledger.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allLocked(), nil
}

func (m *Memory) allLocked() []ledger.Grant {
	result := make([]ledger.Grant, len(m.grants))
	copy(result, m.grants)
	return result
}

func (m *Memory) UpdatePoints(_ context.Context, id ledger.GrantID, points decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(id, points)
}

func (m *Memory) updateLocked(id ledger.GrantID, points decimal.Decimal) error {
	i, ok := m.index[id]
	if !ok {
		return ledger.ErrGrantNotFound
	}
	m.grants[i].Points = points
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshotLocked()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restoreLocked(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshotLocked() []ledger.Grant {
	return append([]ledger.Grant(nil), tm.grants...)
}

func (tm *TxMemory) restoreLocked(snapshot []ledger.Grant) {
	tm.grants = snapshot
	tm.index = make(map[ledger.GrantID]int, len(snapshot))
	tm.reindexLocked()
}

// txMemoryView runs against the parent's unexported locked methods; the
// parent holds the lock for the whole transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Insert(_ context.Context, payer string, points decimal.Decimal, ts time.Time) (ledger.GrantID, error) {
	return tv.parent.insertLocked(payer, points, ts)
}

func (tv *txMemoryView) AllByTimestamp(_ context.Context) ([]ledger.Grant, error) {
	return tv.parent.allLocked(), nil
}

func (tv *txMemoryView) UpdatePoints(_ context.Context, id ledger.GrantID, points decimal.Decimal) error {
	return tv.parent.updateLocked(id, points)
}
