/*
Package ledger is the core of the points engine.

PURPOSE:
  Tracks a single account's reward-point balance across point-issuing
  partners ("payers"). The ledger is a collection of timestamped grants;
  spending consumes the oldest grants first regardless of payer, and no
  payer's balance ever goes negative.

KEY CONCEPTS IN THIS FILE (types.go):
  - Grant: one timestamped unit of points issued by a payer, with a
    remaining (mutable) balance
  - GrantID: store-assigned identifier, used to target decrements
  - Plan / Deduction / PayerDebit: the output of spend allocation

DESIGN PRINCIPLES:
  1. Precision: point quantities are decimal.Decimal, never float
  2. Append-then-decrement: grants are created once and only ever
     decremented, never deleted or re-timestamped
  3. Audit: a fully-consumed grant persists with zero points

SEE ALSO:
  - allocator.go: Spend allocation (the core algorithm)
  - balance.go: Per-payer balance aggregation
  - service.go: Grant recording and spend execution
  - store.go: Persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// GrantID uniquely identifies a grant. Assigned by the store on insert.
type GrantID string

// Grant is one unit of the ledger: points issued by a payer at a point
// in time. Points is the REMAINING balance of this grant; it starts at
// the issued amount and is mutated downward (never below zero) as spend
// consumes it.
type Grant struct {
	ID        GrantID
	Payer     string
	Points    decimal.Decimal
	Timestamp time.Time
}

// Exhausted reports whether this grant has nothing left to spend.
func (g Grant) Exhausted() bool {
	return !g.Points.IsPositive()
}

// Deduction is one entry of a spend plan: decrement a specific grant.
type Deduction struct {
	GrantID   GrantID
	Payer     string
	Points    decimal.Decimal // amount removed from the grant, positive
	NewPoints decimal.Decimal // grant's remaining balance after applying
}

// PayerDebit summarizes how much a spend removed from one payer.
// Points is negative, representing points removed.
type PayerDebit struct {
	Payer  string
	Points decimal.Decimal
}

// Plan is the output of Allocate: the per-grant deductions to apply and
// the per-payer summary, in the order payers were first touched.
type Plan struct {
	Deductions []Deduction
	Summary    []PayerDebit
}

// TotalAvailable sums the remaining points of all grants in a snapshot.
// Exhausted grants contribute nothing.
func TotalAvailable(snapshot []Grant) decimal.Decimal {
	total := decimal.Zero
	for _, g := range snapshot {
		if g.Exhausted() {
			continue
		}
		total = total.Add(g.Points)
	}
	return total
}
