/*
pool.go - Per-asset pooled escrow balances

PURPOSE:
  The AssetPool is the only component allowed to change escrow totals.
  Funds enter on transfer initiation and payroll execution, and leave on
  claim and refund. The pool can never go negative.

INVARIANT:
  pool(kind) >= sum of amounts of every transfer record and bulk recipient
  currently Active or Rejected for that kind. Deposit before record
  creation and withdraw-on-finalize preserve this.

ZERO AMOUNTS:
  Zero deposits/withdrawals are rejected upstream with ErrInvalidAmount;
  the pool itself only guards against overflow and shortfall.
*/
package ledger

import "context"

// AssetPool tracks one non-negative pooled balance per asset kind,
// persisted through the Store so pool and records commit together.
type AssetPool struct {
	store Store
}

func NewAssetPool(store Store) *AssetPool {
	return &AssetPool{store: store}
}

// Deposit increases the pool for kind. Fails with ErrInvalidAmount on
// overflow; otherwise it always succeeds for amount > 0.
func (p *AssetPool) Deposit(ctx context.Context, kind AssetKind, amount uint64) error {
	balance, err := p.store.PoolBalance(ctx, kind)
	if err != nil {
		return err
	}
	next, ok := AddChecked(balance, amount)
	if !ok {
		return ErrInvalidAmount
	}
	return p.store.SetPoolBalance(ctx, kind, next)
}

// Withdraw decreases the pool for kind. Fails with ErrInsufficientEscrow
// (via InsufficientEscrowError) when the pool holds less than amount.
func (p *AssetPool) Withdraw(ctx context.Context, kind AssetKind, amount uint64) error {
	balance, err := p.store.PoolBalance(ctx, kind)
	if err != nil {
		return err
	}
	if balance < amount {
		return &InsufficientEscrowError{Asset: kind, Available: balance, Requested: amount}
	}
	return p.store.SetPoolBalance(ctx, kind, balance-amount)
}

// Balance returns the current pooled balance for kind.
func (p *AssetPool) Balance(ctx context.Context, kind AssetKind) (uint64, error) {
	return p.store.PoolBalance(ctx, kind)
}
