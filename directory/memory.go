package directory

import (
	"context"
	"sync"

	"github.com/warp/escrow-ledger/ledger"
)

// MemoryStore is an in-memory Store for testing and development.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[ledger.AccountID]Account
	handles  map[string]ledger.AccountID
	order    []ledger.AccountID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[ledger.AccountID]Account),
		handles:  make(map[string]ledger.AccountID),
	}
}

func (m *MemoryStore) InsertAccount(_ context.Context, acct Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[acct.ID]; exists {
		return ledger.ErrDuplicateKey
	}
	m.accounts[acct.ID] = acct
	if acct.Handle != "" {
		m.handles[acct.Handle] = acct.ID
	}
	m.order = append(m.order, acct.ID)
	return nil
}

func (m *MemoryStore) GetAccount(_ context.Context, id ledger.AccountID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, exists := m.accounts[id]
	if !exists {
		return nil, nil
	}
	cp := acct
	return &cp, nil
}

func (m *MemoryStore) GetAccountByHandle(_ context.Context, handle string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, exists := m.handles[handle]
	if !exists {
		return nil, nil
	}
	acct := m.accounts[id]
	return &acct, nil
}

func (m *MemoryStore) ListAccounts(_ context.Context) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Account, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.accounts[id])
	}
	return result, nil
}
