// balance.go - Per-payer balance aggregation.
//
// Balance is always computed by folding the ledger snapshot; there is
// no separate balance field that can drift out of sync.
package ledger

import "github.com/shopspring/decimal"

// Balances sums remaining points per payer across the snapshot. Payers
// with no grants are absent from the result. The returned map is never
// nil.
func Balances(snapshot []Grant) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(snapshot))
	for _, g := range snapshot {
		balances[g.Payer] = balances[g.Payer].Add(g.Points)
	}
	return balances
}
