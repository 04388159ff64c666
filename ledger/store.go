/*
store.go - Persistence interface for the escrow ledger

PURPOSE:
  Defines the interface between the engine and its storage substrate.
  The engine only needs keyed get/insert/update with contains-check
  semantics; implementations can use SQLite or in-memory maps.

KEY INTERFACES:
  Store:   Keyed persistence for transfers, bulk records, payrolls and
           pooled balances
  TxStore: Store plus WithTx for all-or-nothing multi-write operations

CONTAINS-CHECK DISCIPLINE:
  Inserts fail with ErrDuplicateKey (ErrPayrollAlreadyExists for payroll
  names) when the key already exists. Callers additionally contains-check
  before computing derived values so error ordering is stable.

APPEND-ONLY CONTRACT:
  There is no Delete. Transfer records mutate only through FinalizeTransfer,
  which sets the status and the (write-once) finalizing key.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - ledger/store: In-memory for testing/dev

SEE ALSO:
  - service.go: Every mutating operation runs inside WithTx
*/
package ledger

import "context"

// =============================================================================
// STORE - Keyed persistence
// =============================================================================

// Store handles persistence of ledger state. Lookups return (nil, nil)
// when the key does not exist; callers translate that to ErrNotFound.
type Store interface {
	// InsertTransfer persists a new transfer record.
	// Returns ErrDuplicateKey if the key is taken.
	InsertTransfer(ctx context.Context, rec TransferRecord) error

	// GetTransfer returns the record for key, or nil if absent.
	GetTransfer(ctx context.Context, key TxKey) (*TransferRecord, error)

	// FinalizeTransfer sets the status and finalizing key of an existing
	// record. This is the only mutation of a stored transfer.
	FinalizeTransfer(ctx context.Context, key TxKey, status TransferStatus, finalizedBy TxKey) error

	// ListTransfersByAccount returns every record where the account is
	// sender or receiver, in creation order.
	ListTransfersByAccount(ctx context.Context, account AccountID) ([]TransferRecord, error)

	// InsertBulkTransfer persists a payroll execution artifact.
	// Returns ErrDuplicateKey if the key is taken.
	InsertBulkTransfer(ctx context.Context, rec BulkTransferRecord) error

	// GetBulkTransfer returns the bulk record for key, or nil if absent.
	GetBulkTransfer(ctx context.Context, key TxKey) (*BulkTransferRecord, error)

	// InsertPayroll persists a payroll definition and indexes it by owner.
	// Returns ErrPayrollAlreadyExists if the name is taken.
	InsertPayroll(ctx context.Context, def PayrollDefinition) error

	// GetPayroll returns the definition for name, or nil if absent.
	GetPayroll(ctx context.Context, name PayrollName) (*PayrollDefinition, error)

	// ListPayrollsByOwner returns the owner's definitions in creation order.
	ListPayrollsByOwner(ctx context.Context, owner AccountID) ([]PayrollDefinition, error)

	// PoolBalance returns the pooled balance for an asset kind.
	// Unknown kinds have balance zero.
	PoolBalance(ctx context.Context, kind AssetKind) (uint64, error)

	// SetPoolBalance overwrites the pooled balance for an asset kind.
	// Only the AssetPool calls this.
	SetPoolBalance(ctx context.Context, kind AssetKind, balance uint64) error
}

// =============================================================================
// TRANSACTIONAL STORE - All-or-nothing multi-write operations
// =============================================================================

// TxStore wraps Store with transaction support. Every mutating ledger
// operation runs inside WithTx so a guard failure anywhere leaves no
// partial effects.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns an error, every write inside it is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
