/*
Package directory provides the account-directory collaborator.

PURPOSE:
  Registers and resolves accounts by identifier, display name or contact
  handle. The ledger core only consults it to answer "does this
  identifier resolve to a known account" for display purposes, never for
  authorization. Authorization is equality against the stored sender/
  receiver/owner identity supplied by the already-authenticated caller.
*/
package directory

import (
	"context"
	"time"

	"github.com/warp/escrow-ledger/ledger"
)

// Account is a directory entry. Handle is a contact handle (email, phone,
// chat address) unique across the directory.
type Account struct {
	ID        ledger.AccountID
	Name      string
	Handle    string
	CreatedAt time.Time
}

// Store persists directory entries. Lookups return (nil, nil) when absent.
type Store interface {
	InsertAccount(ctx context.Context, acct Account) error
	GetAccount(ctx context.Context, id ledger.AccountID) (*Account, error)
	GetAccountByHandle(ctx context.Context, handle string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

// Directory registers and resolves accounts.
type Directory struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

// SetClock overrides the time source for tests.
func (d *Directory) SetClock(now func() time.Time) { d.now = now }

// Register adds an account. Fails with ErrDuplicateKey when the id or the
// handle is already registered. Contains-checks run before the insert so
// the id conflict is reported first.
func (d *Directory) Register(ctx context.Context, id ledger.AccountID, name, handle string) (*Account, error) {
	if id == "" || name == "" {
		return nil, ledger.ErrInvalidParameters
	}

	existing, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ledger.ErrDuplicateKey
	}
	if handle != "" {
		byHandle, err := d.store.GetAccountByHandle(ctx, handle)
		if err != nil {
			return nil, err
		}
		if byHandle != nil {
			return nil, ledger.ErrDuplicateKey
		}
	}

	acct := Account{ID: id, Name: name, Handle: handle, CreatedAt: d.now()}
	if err := d.store.InsertAccount(ctx, acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Resolve returns the account for id, failing with ErrNotFound if the
// identifier is unknown.
func (d *Directory) Resolve(ctx context.Context, id ledger.AccountID) (*Account, error) {
	acct, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ledger.ErrNotFound
	}
	return acct, nil
}

// ResolveHandle returns the account for a contact handle.
func (d *Directory) ResolveHandle(ctx context.Context, handle string) (*Account, error) {
	acct, err := d.store.GetAccountByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ledger.ErrNotFound
	}
	return acct, nil
}

// Known reports whether id resolves to a registered account.
func (d *Directory) Known(ctx context.Context, id ledger.AccountID) (bool, error) {
	acct, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return false, err
	}
	return acct != nil, nil
}

// List returns every registered account in creation order.
func (d *Directory) List(ctx context.Context) ([]Account, error) {
	return d.store.ListAccounts(ctx)
}
