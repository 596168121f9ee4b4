/*
allocator.go - Spend allocation (the core algorithm)

PURPOSE:
  Given an ordered ledger snapshot and a requested spend amount, decide
  exactly how many points to deduct from each grant so that:
    (a) the oldest grants are exhausted first, regardless of payer
    (b) no grant - and therefore no payer balance - ever goes negative
    (c) the total deducted equals the requested amount, or the request
        is rejected in full

  Allocation is PURE: it returns a Plan and never touches the store.
  Applying the plan is the Service's job (service.go), inside a store
  transaction.

ALGORITHM:
  1. Sum remaining points over all grants. If the total is short of the
     request, fail with InsufficientBalanceError - nothing is mutated,
     not even partially.
  2. Walk the snapshot in timestamp order (the store already provides
     it sorted; a stable re-sort keeps the guarantee if a caller hands
     in an unsorted slice). Timestamp ties keep snapshot order.
  3. For each grant with points left, deduct min(remaining, points),
     accumulate the per-payer summary, and stop once the request is
     covered.

  The postcondition follows from step 1: on success the deductions sum
  to exactly the requested amount.
*/
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Allocate computes a deduction plan for spending the requested number
// of points against the snapshot. The snapshot is not modified.
//
// The per-payer summary holds negative values (points removed) and is
// ordered by the moment each payer was first touched during the walk.
func Allocate(snapshot []Grant, requested decimal.Decimal) (Plan, error) {
	if !requested.IsPositive() {
		return Plan{}, &ValidationError{Field: "points", Reason: "must be a positive integer"}
	}

	available := TotalAvailable(snapshot)
	if available.LessThan(requested) {
		return Plan{}, &InsufficientBalanceError{Available: available, Requested: requested}
	}

	// Oldest first, independent of payer. SliceStable keeps snapshot
	// order for equal timestamps.
	ordered := make([]Grant, len(snapshot))
	copy(ordered, snapshot)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var plan Plan
	payerIdx := make(map[string]int)
	remaining := requested

	for _, g := range ordered {
		if remaining.IsZero() {
			break
		}
		if g.Exhausted() {
			continue
		}

		deduct := decimal.Min(remaining, g.Points)
		plan.Deductions = append(plan.Deductions, Deduction{
			GrantID:   g.ID,
			Payer:     g.Payer,
			Points:    deduct,
			NewPoints: g.Points.Sub(deduct),
		})
		remaining = remaining.Sub(deduct)

		i, ok := payerIdx[g.Payer]
		if !ok {
			i = len(plan.Summary)
			payerIdx[g.Payer] = i
			plan.Summary = append(plan.Summary, PayerDebit{Payer: g.Payer, Points: decimal.Zero})
		}
		plan.Summary[i].Points = plan.Summary[i].Points.Sub(deduct)
	}

	return plan, nil
}
