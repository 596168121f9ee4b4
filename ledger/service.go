/*
service.go - Grant recording and spend execution

PURPOSE:
  Service is the write surface of the ledger. It owns the store handle
  (injected at construction, no process-wide singleton) and wires the
  pure pieces together:

    Record:   validate -> insert grant -> emit GrantRecorded
    Spend:    snapshot -> Allocate -> apply deductions -> emit SpendApplied
    Balances: snapshot -> fold per payer

CONCURRENCY:
  The reference behavior this engine replaces had a snapshot-then-mutate
  race: two concurrent spends could both read the same grant as
  available before either committed its deduction. Spend closes it two
  ways: a service-level mutex serializes spends on the account, and the
  snapshot read plus every deduction write run inside one store
  transaction, so the ledger is never left partially debited.

  Grant insertion only appends and needs no coordination with spends
  beyond normal storage atomicity.
*/
package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/points-engine/events"
)

// Service exposes the ledger operations: record a grant, spend points,
// report balances.
type Service struct {
	store     TxStore
	publisher events.Publisher
	log       *zap.Logger

	// Serializes spends: one allocation+write cycle at a time.
	spendMu sync.Mutex
}

// NewService creates a Service around the given store. A nil publisher
// disables the event stream; a nil logger discards logs.
func NewService(store TxStore, publisher events.Publisher, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, publisher: publisher, log: log}
}

// =============================================================================
// GRANT RECORDER
// =============================================================================

// Record validates and appends a new grant, returning its assigned id.
// Validation happens before the store is touched.
//
// A grant of exactly zero points is valid: it is recorded and has no
// effect on balances. A negative grant is rejected, since it would
// immediately violate the no-negative-grant invariant.
func (s *Service) Record(ctx context.Context, payer string, points decimal.Decimal, timestamp string) (GrantID, error) {
	if strings.TrimSpace(payer) == "" {
		return "", &ValidationError{Field: "payer", Reason: "must be a non-empty string"}
	}
	if points.IsNegative() {
		return "", &ValidationError{Field: "points", Reason: "must not be negative"}
	}
	if !points.IsInteger() {
		return "", &ValidationError{Field: "points", Reason: "must be an integer"}
	}
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return "", &ValidationError{Field: "timestamp", Reason: "must be an RFC 3339 instant"}
	}

	id, err := s.store.Insert(ctx, payer, points, ts)
	if err != nil {
		return "", err
	}

	s.publish(events.TopicGrantRecorded, events.GrantRecorded{
		GrantID:    string(id),
		Payer:      payer,
		Points:     points.IntPart(),
		Timestamp:  ts,
		RecordedAt: time.Now().UTC(),
	})

	return id, nil
}

// =============================================================================
// SPEND EXECUTOR
// =============================================================================

// Spend deducts the requested points from the ledger, oldest grants
// first, and returns the per-payer summary in first-touch order.
//
// The allocation decision and every resulting grant update happen in
// one store transaction: either the full deduction commits or the
// ledger is untouched.
func (s *Service) Spend(ctx context.Context, requested decimal.Decimal) ([]PayerDebit, error) {
	if !requested.IsPositive() {
		return nil, &ValidationError{Field: "points", Reason: "must be a positive integer"}
	}
	if !requested.IsInteger() {
		return nil, &ValidationError{Field: "points", Reason: "must be an integer"}
	}

	s.spendMu.Lock()
	defer s.spendMu.Unlock()

	var summary []PayerDebit
	err := s.store.WithTx(ctx, func(tx Store) error {
		snapshot, err := tx.AllByTimestamp(ctx)
		if err != nil {
			return err
		}

		plan, err := Allocate(snapshot, requested)
		if err != nil {
			return err
		}

		for _, d := range plan.Deductions {
			if err := tx.UpdatePoints(ctx, d.GrantID, d.NewPoints); err != nil {
				return err
			}
		}

		summary = plan.Summary
		return nil
	})
	if err != nil {
		return nil, err
	}

	debits := make([]events.PayerDebit, len(summary))
	for i, d := range summary {
		debits[i] = events.PayerDebit{Payer: d.Payer, Points: d.Points.IntPart()}
	}
	s.publish(events.TopicSpendApplied, events.SpendApplied{
		SpendID:    uuid.NewString(),
		Points:     requested.IntPart(),
		Debits:     debits,
		OccurredAt: time.Now().UTC(),
	})

	return summary, nil
}

// =============================================================================
// BALANCE AGGREGATOR
// =============================================================================

// PayerBalances returns the current balance per payer. Only payers with
// at least one grant appear; an empty ledger yields an empty map.
func (s *Service) PayerBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	snapshot, err := s.store.AllByTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	return Balances(snapshot), nil
}

// Grants returns the raw ledger, ascending by timestamp. Fully-consumed
// grants appear with zero points.
func (s *Service) Grants(ctx context.Context) ([]Grant, error) {
	return s.store.AllByTimestamp(ctx)
}

// publish delivers an event best-effort. A broker failure must never
// fail the ledger operation that already committed.
func (s *Service) publish(topic string, event any) {
	if err := s.publisher.Publish(topic, event); err != nil {
		s.log.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
