/*
service.go - The orchestrating ledger service

PURPOSE:
  Service exposes the public operation surface, composing the pool, the
  transfer registry and the payroll engine. Every public operation is a
  single atomic step: it validates inputs and preconditions, mutates at
  most two components inside one store transaction, and returns or fails
  with no partial effects.

CONCURRENCY:
  The ledger is a single shared mutable state with no internal
  concurrency. One RWMutex serializes mutations (exclusive lock per
  mutating call); read-only queries take the shared lock and may run
  concurrently with each other. No operation suspends, retries or times
  out internally.

EVENTS:
  After a mutation commits, the service hands a structured event to the
  notification sink. Event delivery is outside the transaction: a slow or
  failing sink never affects ledger state.

SEE ALSO:
  - pool.go, registry.go, payroll.go: The composed components
  - store.go: The WithTx contract underpinning atomicity
*/
package ledger

import (
	"context"
	"sync"
	"time"
)

// Service is the process-wide ledger state handle. Construct exactly one
// per store and pass it explicitly; there are no ambient globals.
type Service struct {
	mu    sync.RWMutex
	store TxStore
	sink  Sink
	now   func() time.Time
}

// NewService creates the ledger service. A nil sink discards events.
func NewService(store TxStore, sink Sink) *Service {
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	return &Service{store: store, sink: sink, now: time.Now}
}

// SetClock overrides the time source. Tests pin the clock so verification
// codes are predictable.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// =============================================================================
// TRANSFER OPERATIONS
// =============================================================================

// InitTransfer escrows amount into the pool and creates an Active record
// carrying a verification code derived from (sender, receiver, now).
func (s *Service) InitTransfer(ctx context.Context, sender, receiver AccountID, amount uint64, kind AssetKind, key TxKey) (*TransferView, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !kind.Valid() {
		return nil, ErrInvalidParameters
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := TransferRecord{
		Key:              key,
		Sender:           sender,
		Receiver:         receiver,
		Amount:           amount,
		Asset:            kind,
		Status:           StatusActive,
		VerificationCode: GenerateCode(sender, receiver, now),
		CreatedAt:        now,
	}

	err := s.store.WithTx(ctx, func(st Store) error {
		// Contains-check before the deposit so a duplicate key aborts with
		// the pool untouched.
		existing, err := st.GetTransfer(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateKey
		}
		if err := NewAssetPool(st).Deposit(ctx, kind, amount); err != nil {
			return err
		}
		return NewTransferRegistry(st).Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventTransferInitiated, sender, receiver, amount, kind, key, now)
	return viewOf(rec), nil
}

// SendDirect records an immediate, non-escrow payment. Funds move to the
// receiver outside the ledger; the Completed record exists purely for the
// audit trail and events. The verification code is empty.
func (s *Service) SendDirect(ctx context.Context, sender, receiver AccountID, amount uint64, kind AssetKind, key TxKey) (*TransferView, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !kind.Valid() {
		return nil, ErrInvalidParameters
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := TransferRecord{
		Key:       key,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Asset:     kind,
		Status:    StatusCompleted,
		CreatedAt: now,
	}

	err := s.store.WithTx(ctx, func(st Store) error {
		return NewTransferRegistry(st).Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventTransferDirect, sender, receiver, amount, kind, key, now)
	return viewOf(rec), nil
}

// Claim pays the receiver: validates the code and caller, withdraws the
// escrowed amount from the pool, and marks the record Claimed with the
// finalizing key. A wrong code mutates nothing.
func (s *Service) Claim(ctx context.Context, key TxKey, code string, caller AccountID, finalizedBy TxKey) (*TransferView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out TransferRecord
	err := s.store.WithTx(ctx, func(st Store) error {
		reg := NewTransferRegistry(st)
		rec, err := reg.Get(ctx, key)
		if err != nil {
			return err
		}
		if err := reg.Authorize(rec, code, caller, "claim"); err != nil {
			return err
		}

		pool := NewAssetPool(st)
		balance, err := pool.Balance(ctx, rec.Asset)
		if err != nil {
			return err
		}
		// Unreachable while the deposit invariant holds, but checked.
		if balance < rec.Amount {
			return ErrInsufficientBalance
		}
		if err := pool.Withdraw(ctx, rec.Asset, rec.Amount); err != nil {
			return err
		}
		if err := reg.Finalize(ctx, key, StatusClaimed, finalizedBy); err != nil {
			return err
		}
		out = *rec
		out.Status = StatusClaimed
		out.FinalizedBy = finalizedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventTransferClaimed, caller, out.Receiver, out.Amount, out.Asset, key, s.now())
	return viewOf(out), nil
}

// Reject declines a transfer without moving funds: the record becomes
// Rejected and the escrowed amount stays in the pool until the sender
// refunds. Guards are identical to Claim.
func (s *Service) Reject(ctx context.Context, key TxKey, code string, caller AccountID, finalizedBy TxKey) (*TransferView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out TransferRecord
	err := s.store.WithTx(ctx, func(st Store) error {
		reg := NewTransferRegistry(st)
		rec, err := reg.Get(ctx, key)
		if err != nil {
			return err
		}
		if err := reg.Authorize(rec, code, caller, "reject"); err != nil {
			return err
		}
		if err := reg.Finalize(ctx, key, StatusRejected, finalizedBy); err != nil {
			return err
		}
		out = *rec
		out.Status = StatusRejected
		out.FinalizedBy = finalizedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventTransferRejected, caller, out.Sender, out.Amount, out.Asset, key, s.now())
	return viewOf(out), nil
}

// Refund returns a rejected transfer's funds to the sender: withdraws the
// amount from the pool and marks the record Refunded. Only the sender of
// a Rejected record may refund.
func (s *Service) Refund(ctx context.Context, key TxKey, caller AccountID, finalizedBy TxKey) (*TransferView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out TransferRecord
	err := s.store.WithTx(ctx, func(st Store) error {
		reg := NewTransferRegistry(st)
		rec, err := reg.Get(ctx, key)
		if err != nil {
			return err
		}
		if err := reg.AuthorizeRefund(rec, caller); err != nil {
			return err
		}
		if err := NewAssetPool(st).Withdraw(ctx, rec.Asset, rec.Amount); err != nil {
			return err
		}
		if err := reg.Finalize(ctx, key, StatusRefunded, finalizedBy); err != nil {
			return err
		}
		out = *rec
		out.Status = StatusRefunded
		out.FinalizedBy = finalizedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventTransferRefunded, caller, out.Sender, out.Amount, out.Asset, key, s.now())
	return viewOf(out), nil
}

// =============================================================================
// PAYROLL OPERATIONS
// =============================================================================

// CreatePayroll stores an immutable payroll definition owned by the caller.
func (s *Service) CreatePayroll(ctx context.Context, name PayrollName, recipients []AccountID, amounts []uint64, kind AssetKind, owner AccountID) (*PayrollView, error) {
	if !kind.Valid() {
		return nil, ErrInvalidParameters
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	def := PayrollDefinition{
		Name:       name,
		Recipients: append([]AccountID(nil), recipients...),
		Amounts:    append([]uint64(nil), amounts...),
		Asset:      kind,
		Owner:      owner,
		CreatedAt:  now,
	}

	err := s.store.WithTx(ctx, func(st Store) error {
		return NewPayrollEngine(st, NewAssetPool(st)).Create(ctx, def)
	})
	if err != nil {
		return nil, err
	}

	total, _ := SumChecked(def.Amounts)
	s.emit(EventPayrollCreated, owner, "", total, kind, "", now)
	return payrollViewOf(def), nil
}

// ExecutePayroll deposits funding into the pool and creates the bulk
// record for the named payroll. Any funding above the definition total is
// absorbed by the pool.
func (s *Service) ExecutePayroll(ctx context.Context, name PayrollName, funding uint64, kind AssetKind, caller AccountID, key TxKey) (*BulkTransferView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var rec *BulkTransferRecord
	err := s.store.WithTx(ctx, func(st Store) error {
		var err error
		rec, err = NewPayrollEngine(st, NewAssetPool(st)).Execute(ctx, name, funding, kind, caller, key, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventPayrollExecuted, caller, "", funding, kind, key, now)
	return bulkViewOf(*rec), nil
}

// =============================================================================
// QUERIES - Read-only copy-out projections
// =============================================================================

// Transfer returns the projection for one record.
func (s *Service) Transfer(ctx context.Context, key TxKey) (*TransferView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.store.GetTransfer(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return viewOf(*rec), nil
}

// TransfersFor returns every record where account is sender or receiver.
func (s *Service) TransfersFor(ctx context.Context, account AccountID) ([]TransferView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.store.ListTransfersByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	views := make([]TransferView, len(recs))
	for i, rec := range recs {
		views[i] = *viewOf(rec)
	}
	return views, nil
}

// BulkTransfer returns the projection for one payroll execution.
func (s *Service) BulkTransfer(ctx context.Context, key TxKey) (*BulkTransferView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.store.GetBulkTransfer(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return bulkViewOf(*rec), nil
}

// Payroll returns the projection for one definition.
func (s *Service) Payroll(ctx context.Context, name PayrollName) (*PayrollView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, err := s.store.GetPayroll(ctx, name)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrNotFound
	}
	return payrollViewOf(*def), nil
}

// PayrollsFor returns the owner's definitions in creation order.
func (s *Service) PayrollsFor(ctx context.Context, owner AccountID) ([]PayrollView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs, err := s.store.ListPayrollsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	views := make([]PayrollView, len(defs))
	for i, def := range defs {
		views[i] = *payrollViewOf(def)
	}
	return views, nil
}

// PoolBalance returns the pooled balance for one asset kind.
func (s *Service) PoolBalance(ctx context.Context, kind AssetKind) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.PoolBalance(ctx, kind)
}

// PoolBalances returns the pooled balance for every asset kind.
func (s *Service) PoolBalances(ctx context.Context) (map[AssetKind]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := make(map[AssetKind]uint64, len(Kinds()))
	for _, kind := range Kinds() {
		balance, err := s.store.PoolBalance(ctx, kind)
		if err != nil {
			return nil, err
		}
		balances[kind] = balance
	}
	return balances, nil
}

func (s *Service) emit(kind EventKind, actor, recipient AccountID, amount uint64, asset AssetKind, key TxKey, at time.Time) {
	s.sink.Emit(Event{
		Kind:      kind,
		Actor:     actor,
		Recipient: recipient,
		Amount:    amount,
		Asset:     asset,
		Key:       key,
		At:        at,
	})
}
