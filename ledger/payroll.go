/*
payroll.go - Named payroll batches and their execution

PURPOSE:
  A payroll is an immutable, owner-scoped batch of (recipient, amount)
  pairs. Executing it deposits one funding amount into the pool and
  produces a BulkTransferRecord with one Active recipient per entry, each
  carrying a freshly generated verification code.

EXCESS FUNDING:
  Execution accepts funding >= total. Any excess over the total is
  absorbed into the shared pool with no refund and no record of whose
  excess it is. This matches the upstream behavior and is deliberate;
  callers who care should fund exactly.

RECIPIENT RESOLUTION:
  Bulk recipients are created Active and currently have no reachable
  transition: no claim or refund operation exists for them, and the
  per-record finalizing-key map stays empty.
*/
package ledger

import (
	"context"
	"time"
)

// PayrollEngine defines named payroll batches and executes them against
// the asset pool.
type PayrollEngine struct {
	store Store
	pool  *AssetPool
}

func NewPayrollEngine(store Store, pool *AssetPool) *PayrollEngine {
	return &PayrollEngine{store: store, pool: pool}
}

// Create validates and stores a payroll definition. Guards run in order:
// empty recipients, length mismatch, zero amounts, name taken, total
// overflow. The definition is immutable after creation.
func (e *PayrollEngine) Create(ctx context.Context, def PayrollDefinition) error {
	if len(def.Recipients) == 0 {
		return ErrEmptyRecipients
	}
	if len(def.Recipients) != len(def.Amounts) {
		return ErrInvalidParameters
	}
	for _, amount := range def.Amounts {
		if amount == 0 {
			return ErrInvalidAmount
		}
	}
	existing, err := e.store.GetPayroll(ctx, def.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrPayrollAlreadyExists
	}
	if _, ok := SumChecked(def.Amounts); !ok {
		return ErrInvalidAmount
	}
	return e.store.InsertPayroll(ctx, def)
}

// Execute runs a payroll: validates ownership and funding, deposits the
// full funding amount into the pool, and assembles the bulk record keyed
// by txKey. Runs inside the service's store transaction, so a failure at
// any guard leaves no effects.
func (e *PayrollEngine) Execute(ctx context.Context, name PayrollName, funding uint64, kind AssetKind, caller AccountID, txKey TxKey, now time.Time) (*BulkTransferRecord, error) {
	def, err := e.store.GetPayroll(ctx, name)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrNotFound
	}
	if def.Owner != caller {
		return nil, ErrNotPayrollOwner
	}
	if kind != def.Asset {
		return nil, ErrInvalidParameters
	}

	// The definition was overflow-checked at creation; recompute the total
	// for the funding guard. The bulk record stores it once.
	total, ok := SumChecked(def.Amounts)
	if !ok {
		return nil, ErrInvalidAmount
	}
	if funding < total {
		return nil, &InsufficientFundsError{Payroll: name, Required: total, Provided: funding}
	}

	existing, err := e.store.GetBulkTransfer(ctx, txKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateKey
	}

	if err := e.pool.Deposit(ctx, kind, funding); err != nil {
		return nil, err
	}

	recipients := make([]Recipient, len(def.Recipients))
	for i, addr := range def.Recipients {
		recipients[i] = Recipient{
			Address:          addr,
			Amount:           def.Amounts[i],
			Status:           StatusActive,
			VerificationCode: GenerateCode(def.Owner, addr, now),
		}
	}

	rec := BulkTransferRecord{
		Key:         txKey,
		Sender:      def.Owner,
		Recipients:  recipients,
		TotalAmount: total,
		Asset:       kind,
		CreatedAt:   now,
		FinalizedBy: make(map[AccountID]TxKey),
	}
	if err := e.store.InsertBulkTransfer(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
