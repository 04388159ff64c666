/*
events.go - Domain events handed to the notification collaborator

PURPOSE:
  The engine emits structured event values after a mutation commits. The
  collaborator (a logger, a message bus, a test capture) renders or
  delivers them; the engine never depends on delivery succeeding.
*/
package ledger

import "time"

type EventKind string

const (
	EventTransferInitiated EventKind = "transfer_initiated"
	EventTransferDirect    EventKind = "transfer_direct"
	EventTransferClaimed   EventKind = "transfer_claimed"
	EventTransferRejected  EventKind = "transfer_rejected"
	EventTransferRefunded  EventKind = "transfer_refunded"
	EventPayrollCreated    EventKind = "payroll_created"
	EventPayrollExecuted   EventKind = "payroll_executed"
)

// Event is the value handed to the notification sink. For payroll events
// Recipient is empty and Amount is the definition total (created) or the
// funding amount (executed).
type Event struct {
	Kind      EventKind
	Actor     AccountID
	Recipient AccountID
	Amount    uint64
	Asset     AssetKind
	Key       TxKey
	At        time.Time
}

// Sink receives events after a successful mutation. Implementations must
// not block the caller for long; delivery is fire-and-forget.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e Event)

func (f SinkFunc) Emit(e Event) { f(e) }
