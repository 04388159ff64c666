/*
Package ledger provides the core escrow-mediated value-transfer engine.

PURPOSE:
  This package contains the escrow state machine and multi-asset balance
  pool. Funds are deposited into a shared pool when a transfer is initiated,
  and only leave the pool through a verified claim or an explicit refund.
  Payroll batches disburse from one funding operation to many recipients.

KEY CONCEPTS IN THIS FILE (types.go):
  - AssetKind: Closed enum of supported asset kinds
  - TransferRecord: One sender→receiver escrowed or direct payment
  - BulkTransferRecord: The execution artifact of a payroll run
  - PayrollDefinition: A named, owner-scoped batch of (recipient, amount)

DESIGN PRINCIPLES:
  1. Append-only records: transfers are never deleted; only status and the
     finalizing key mutate after creation
  2. Integer amounts: all amounts are uint64 minor units with checked
     addition, so an overflow is an error rather than a wrap
  3. Type Safety: strong typing for account identifiers and transaction keys
  4. Copy-out: queries return value copies, never aliases into state

SEE ALSO:
  - pool.go: Per-asset pooled escrow balances
  - registry.go: The transfer status state machine
  - payroll.go: Batch definitions and execution
  - service.go: The orchestrating service
*/
package ledger

import "time"

// =============================================================================
// ASSET KINDS - Closed enum
// =============================================================================

// AssetKind identifies a pooled asset. The set is closed: the pool tracks
// one balance per kind and nothing else.
type AssetKind string

const (
	AssetPrimary AssetKind = "primary"
	AssetStable  AssetKind = "stable"
)

// Kinds returns every supported asset kind.
func Kinds() []AssetKind {
	return []AssetKind{AssetPrimary, AssetStable}
}

// Valid reports whether k is one of the supported kinds.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetPrimary, AssetStable:
		return true
	}
	return false
}

// Decimals returns the number of minor-unit decimals for display purposes.
// Amounts are always stored in minor units; this only affects rendering.
func (k AssetKind) Decimals() int32 {
	switch k {
	case AssetStable:
		return 6
	default:
		return 9
	}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// AccountID is an opaque, externally-authenticated account identifier.
// The ledger never interprets it; authorization is equality comparison
// against the stored sender/receiver/owner.
type AccountID string

// TxKey is a caller-supplied unique transaction key (e.g. a digest string).
type TxKey string

// PayrollName is the unique name of a payroll definition.
type PayrollName string

// =============================================================================
// TRANSFER STATUS - State machine states
// =============================================================================

type TransferStatus string

const (
	// StatusActive is the initial escrow-held state.
	StatusActive TransferStatus = "active"
	// StatusCompleted is terminal, used only for non-escrow direct sends.
	StatusCompleted TransferStatus = "completed"
	// StatusClaimed is terminal: the receiver presented the correct code.
	StatusClaimed TransferStatus = "claimed"
	// StatusRejected is non-terminal: funds stay escrowed awaiting refund.
	StatusRejected TransferStatus = "rejected"
	// StatusRefunded is terminal: escrowed funds returned to the sender.
	StatusRefunded TransferStatus = "refunded"
)

// Terminal reports whether no further transition is possible.
// Rejected is NOT terminal: it awaits a refund by the sender.
func (s TransferStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusClaimed, StatusRefunded:
		return true
	}
	return false
}

// =============================================================================
// TRANSFER RECORD - One sender→receiver payment
// =============================================================================

// TransferRecord is the unit of a single escrowed or direct payment.
// Identity fields are immutable once set; only Status and FinalizedBy
// mutate, and FinalizedBy is set exactly once.
type TransferRecord struct {
	Key              TxKey
	Sender           AccountID
	Receiver         AccountID
	Amount           uint64
	Asset            AssetKind
	Status           TransferStatus
	VerificationCode string
	CreatedAt        time.Time

	// FinalizedBy references the transaction that claimed, rejected or
	// refunded this record. Empty while Active.
	FinalizedBy TxKey
}

// =============================================================================
// BULK TRANSFER - Payroll execution artifact
// =============================================================================

// Recipient is one entry inside a BulkTransferRecord. It is a value type,
// not separately keyed.
type Recipient struct {
	Address          AccountID
	Amount           uint64
	Status           TransferStatus
	VerificationCode string
}

// BulkTransferRecord is created by executing a payroll. TotalAmount is
// computed once at creation and never recomputed. FinalizedBy maps a
// recipient address to the transaction that resolved it; no operation in
// the current surface populates it.
type BulkTransferRecord struct {
	Key         TxKey
	Sender      AccountID
	Recipients  []Recipient
	TotalAmount uint64
	Asset       AssetKind
	CreatedAt   time.Time
	FinalizedBy map[AccountID]TxKey
}

// =============================================================================
// PAYROLL DEFINITION
// =============================================================================

// PayrollDefinition is an immutable, owner-scoped batch definition.
// Invariant: len(Recipients) == len(Amounts) > 0 and every amount > 0.
type PayrollDefinition struct {
	Name       PayrollName
	Recipients []AccountID
	Amounts    []uint64
	Asset      AssetKind
	Owner      AccountID
	CreatedAt  time.Time
}

// =============================================================================
// SCHEDULED RECORDS - Declared but dormant
// =============================================================================

// ScheduleStatus is the lifecycle of a deferred-execution record.
type ScheduleStatus string

const (
	SchedulePending ScheduleStatus = "pending"
	ScheduleExpired ScheduleStatus = "expired"
)

// ScheduledTransfer is a deferred single transfer. The type exists in the
// data model but no operation currently creates or executes it.
type ScheduledTransfer struct {
	Key         TxKey
	Sender      AccountID
	Receiver    AccountID
	Amount      uint64
	Asset       AssetKind
	ScheduledAt time.Time
	Status      ScheduleStatus
}

// ScheduledBulkTransfer is a deferred payroll run. Dormant, like
// ScheduledTransfer.
type ScheduledBulkTransfer struct {
	Key         TxKey
	Payroll     PayrollName
	Funding     uint64
	Asset       AssetKind
	ScheduledAt time.Time
	Status      ScheduleStatus
}

// =============================================================================
// CHECKED ARITHMETIC
// =============================================================================

// AddChecked returns a+b and whether the addition did not overflow.
func AddChecked(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// SumChecked totals amounts with overflow detection.
func SumChecked(amounts []uint64) (uint64, bool) {
	var total uint64
	for _, a := range amounts {
		next, ok := AddChecked(total, a)
		if !ok {
			return 0, false
		}
		total = next
	}
	return total, true
}
