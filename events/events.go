/*
Package events defines the ledger event stream.

The engine emits an event after every committed ledger change. Events
are best-effort: a publish failure is logged by the caller but never
fails the request that produced it.
*/
package events

import "time"

// Topics for the two ledger event kinds.
const (
	TopicGrantRecorded = "points.grant_recorded"
	TopicSpendApplied  = "points.spend_applied"
)

// Publisher delivers events to an external stream.
type Publisher interface {
	Publish(topic string, event any) error
}

// GrantRecorded is emitted after a grant is durably inserted.
type GrantRecorded struct {
	GrantID    string    `json:"grant_id"`
	Payer      string    `json:"payer"`
	Points     int64     `json:"points"`
	Timestamp  time.Time `json:"timestamp"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SpendApplied is emitted after all deductions of a spend commit.
type SpendApplied struct {
	SpendID    string       `json:"spend_id"`
	Points     int64        `json:"points"`
	Debits     []PayerDebit `json:"debits"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// PayerDebit mirrors the spend summary: points removed per payer,
// negative, in first-touch order.
type PayerDebit struct {
	Payer  string `json:"payer"`
	Points int64  `json:"points"`
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(string, any) error { return nil }
