// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/escrow-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	transfers     map[ledger.TxKey]ledger.TransferRecord
	transferOrder []ledger.TxKey

	bulk map[ledger.TxKey]ledger.BulkTransferRecord

	payrolls   map[ledger.PayrollName]ledger.PayrollDefinition
	ownerIndex map[ledger.AccountID][]ledger.PayrollName

	pool map[ledger.AssetKind]uint64
}

func NewMemory() *Memory {
	return &Memory{
		transfers:  make(map[ledger.TxKey]ledger.TransferRecord),
		bulk:       make(map[ledger.TxKey]ledger.BulkTransferRecord),
		payrolls:   make(map[ledger.PayrollName]ledger.PayrollDefinition),
		ownerIndex: make(map[ledger.AccountID][]ledger.PayrollName),
		pool:       make(map[ledger.AssetKind]uint64),
	}
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (m *Memory) InsertTransfer(_ context.Context, rec ledger.TransferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertTransferLocked(rec)
}

func (m *Memory) insertTransferLocked(rec ledger.TransferRecord) error {
	if _, exists := m.transfers[rec.Key]; exists {
		return ledger.ErrDuplicateKey
	}
	m.transfers[rec.Key] = rec
	m.transferOrder = append(m.transferOrder, rec.Key)
	return nil
}

func (m *Memory) GetTransfer(_ context.Context, key ledger.TxKey) (*ledger.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTransferLocked(key), nil
}

func (m *Memory) getTransferLocked(key ledger.TxKey) *ledger.TransferRecord {
	rec, exists := m.transfers[key]
	if !exists {
		return nil
	}
	cp := rec
	return &cp
}

func (m *Memory) FinalizeTransfer(_ context.Context, key ledger.TxKey, status ledger.TransferStatus, finalizedBy ledger.TxKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalizeTransferLocked(key, status, finalizedBy)
}

func (m *Memory) finalizeTransferLocked(key ledger.TxKey, status ledger.TransferStatus, finalizedBy ledger.TxKey) error {
	rec, exists := m.transfers[key]
	if !exists {
		return ledger.ErrNotFound
	}
	rec.Status = status
	rec.FinalizedBy = finalizedBy
	m.transfers[key] = rec
	return nil
}

func (m *Memory) ListTransfersByAccount(_ context.Context, account ledger.AccountID) ([]ledger.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTransfersLocked(account), nil
}

func (m *Memory) listTransfersLocked(account ledger.AccountID) []ledger.TransferRecord {
	var result []ledger.TransferRecord
	for _, key := range m.transferOrder {
		rec := m.transfers[key]
		if rec.Sender == account || rec.Receiver == account {
			result = append(result, rec)
		}
	}
	return result
}

// =============================================================================
// BULK TRANSFERS
// =============================================================================

func (m *Memory) InsertBulkTransfer(_ context.Context, rec ledger.BulkTransferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertBulkLocked(rec)
}

func (m *Memory) insertBulkLocked(rec ledger.BulkTransferRecord) error {
	if _, exists := m.bulk[rec.Key]; exists {
		return ledger.ErrDuplicateKey
	}
	m.bulk[rec.Key] = copyBulk(rec)
	return nil
}

func (m *Memory) GetBulkTransfer(_ context.Context, key ledger.TxKey) (*ledger.BulkTransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBulkLocked(key), nil
}

func (m *Memory) getBulkLocked(key ledger.TxKey) *ledger.BulkTransferRecord {
	rec, exists := m.bulk[key]
	if !exists {
		return nil
	}
	cp := copyBulk(rec)
	return &cp
}

// copyBulk deep-copies the recipient slice and finalizing map so callers
// never alias store state.
func copyBulk(rec ledger.BulkTransferRecord) ledger.BulkTransferRecord {
	cp := rec
	cp.Recipients = append([]ledger.Recipient(nil), rec.Recipients...)
	cp.FinalizedBy = make(map[ledger.AccountID]ledger.TxKey, len(rec.FinalizedBy))
	for k, v := range rec.FinalizedBy {
		cp.FinalizedBy[k] = v
	}
	return cp
}

// =============================================================================
// PAYROLLS
// =============================================================================

func (m *Memory) InsertPayroll(_ context.Context, def ledger.PayrollDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertPayrollLocked(def)
}

func (m *Memory) insertPayrollLocked(def ledger.PayrollDefinition) error {
	if _, exists := m.payrolls[def.Name]; exists {
		return ledger.ErrPayrollAlreadyExists
	}
	m.payrolls[def.Name] = copyPayroll(def)
	m.ownerIndex[def.Owner] = append(m.ownerIndex[def.Owner], def.Name)
	return nil
}

func (m *Memory) GetPayroll(_ context.Context, name ledger.PayrollName) (*ledger.PayrollDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPayrollLocked(name), nil
}

func (m *Memory) getPayrollLocked(name ledger.PayrollName) *ledger.PayrollDefinition {
	def, exists := m.payrolls[name]
	if !exists {
		return nil
	}
	cp := copyPayroll(def)
	return &cp
}

func (m *Memory) ListPayrollsByOwner(_ context.Context, owner ledger.AccountID) ([]ledger.PayrollDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPayrollsLocked(owner), nil
}

func (m *Memory) listPayrollsLocked(owner ledger.AccountID) []ledger.PayrollDefinition {
	var result []ledger.PayrollDefinition
	for _, name := range m.ownerIndex[owner] {
		result = append(result, copyPayroll(m.payrolls[name]))
	}
	return result
}

func copyPayroll(def ledger.PayrollDefinition) ledger.PayrollDefinition {
	cp := def
	cp.Recipients = append([]ledger.AccountID(nil), def.Recipients...)
	cp.Amounts = append([]uint64(nil), def.Amounts...)
	return cp
}

// =============================================================================
// POOL BALANCES
// =============================================================================

func (m *Memory) PoolBalance(_ context.Context, kind ledger.AssetKind) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool[kind], nil
}

func (m *Memory) SetPoolBalance(_ context.Context, kind ledger.AssetKind, balance uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool[kind] = balance
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against a view of the store. On error the pre-call
// snapshot is restored, so fn's writes are all-or-nothing.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	transfers     map[ledger.TxKey]ledger.TransferRecord
	transferOrder []ledger.TxKey
	bulk          map[ledger.TxKey]ledger.BulkTransferRecord
	payrolls      map[ledger.PayrollName]ledger.PayrollDefinition
	ownerIndex    map[ledger.AccountID][]ledger.PayrollName
	pool          map[ledger.AssetKind]uint64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		transfers:     make(map[ledger.TxKey]ledger.TransferRecord, len(tm.transfers)),
		transferOrder: append([]ledger.TxKey(nil), tm.transferOrder...),
		bulk:          make(map[ledger.TxKey]ledger.BulkTransferRecord, len(tm.bulk)),
		payrolls:      make(map[ledger.PayrollName]ledger.PayrollDefinition, len(tm.payrolls)),
		ownerIndex:    make(map[ledger.AccountID][]ledger.PayrollName, len(tm.ownerIndex)),
		pool:          make(map[ledger.AssetKind]uint64, len(tm.pool)),
	}
	for k, v := range tm.transfers {
		s.transfers[k] = v
	}
	for k, v := range tm.bulk {
		s.bulk[k] = copyBulk(v)
	}
	for k, v := range tm.payrolls {
		s.payrolls[k] = copyPayroll(v)
	}
	for k, v := range tm.ownerIndex {
		s.ownerIndex[k] = append([]ledger.PayrollName(nil), v...)
	}
	for k, v := range tm.pool {
		s.pool[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.transfers = s.transfers
	tm.transferOrder = s.transferOrder
	tm.bulk = s.bulk
	tm.payrolls = s.payrolls
	tm.ownerIndex = s.ownerIndex
	tm.pool = s.pool
}

// txMemoryView operates on the parent directly; the parent's mutex is
// already held for the duration of WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) InsertTransfer(_ context.Context, rec ledger.TransferRecord) error {
	return tv.parent.insertTransferLocked(rec)
}

func (tv *txMemoryView) GetTransfer(_ context.Context, key ledger.TxKey) (*ledger.TransferRecord, error) {
	return tv.parent.getTransferLocked(key), nil
}

func (tv *txMemoryView) FinalizeTransfer(_ context.Context, key ledger.TxKey, status ledger.TransferStatus, finalizedBy ledger.TxKey) error {
	return tv.parent.finalizeTransferLocked(key, status, finalizedBy)
}

func (tv *txMemoryView) ListTransfersByAccount(_ context.Context, account ledger.AccountID) ([]ledger.TransferRecord, error) {
	return tv.parent.listTransfersLocked(account), nil
}

func (tv *txMemoryView) InsertBulkTransfer(_ context.Context, rec ledger.BulkTransferRecord) error {
	return tv.parent.insertBulkLocked(rec)
}

func (tv *txMemoryView) GetBulkTransfer(_ context.Context, key ledger.TxKey) (*ledger.BulkTransferRecord, error) {
	return tv.parent.getBulkLocked(key), nil
}

func (tv *txMemoryView) InsertPayroll(_ context.Context, def ledger.PayrollDefinition) error {
	return tv.parent.insertPayrollLocked(def)
}

func (tv *txMemoryView) GetPayroll(_ context.Context, name ledger.PayrollName) (*ledger.PayrollDefinition, error) {
	return tv.parent.getPayrollLocked(name), nil
}

func (tv *txMemoryView) ListPayrollsByOwner(_ context.Context, owner ledger.AccountID) ([]ledger.PayrollDefinition, error) {
	return tv.parent.listPayrollsLocked(owner), nil
}

func (tv *txMemoryView) PoolBalance(_ context.Context, kind ledger.AssetKind) (uint64, error) {
	return tv.parent.pool[kind], nil
}

func (tv *txMemoryView) SetPoolBalance(_ context.Context, kind ledger.AssetKind, balance uint64) error {
	tv.parent.pool[kind] = balance
	return nil
}
