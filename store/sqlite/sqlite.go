/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore and directory.Store using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  transfers:        Individual transfer records (append-only identity;
                    only status and finalized_by ever change)
  bulk_transfers:   Payroll execution artifacts
  bulk_recipients:  One row per recipient inside a bulk transfer
  payrolls:         Immutable payroll definitions
  payroll_entries:  One row per (recipient, amount) pair
  pool_balances:    One pooled balance per asset kind
  accounts:         Directory entries

ATOMICITY:
  WithTx wraps a database transaction. Every mutating ledger operation
  runs inside it, so a guard failure anywhere rolls back pool and record
  writes together.

CONCURRENCY:
  Uses sync.RWMutex on top of WAL mode: multiple readers, single writer,
  matching the serialized-command execution model of the ledger.

USAGE:
  store, err := sqlite.New("./data/escrow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store, sink)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/escrow-ledger/directory"
	"github.com/warp/escrow-ledger/ledger"
)

// Store implements ledger.TxStore and directory.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Individual transfer records. Never deleted; only status and
	-- finalized_by change after insert.
	CREATE TABLE IF NOT EXISTS transfers (
		key TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		receiver TEXT NOT NULL,
		amount INTEGER NOT NULL,
		asset TEXT NOT NULL,
		status TEXT NOT NULL,
		verification_code TEXT NOT NULL,
		created_at TEXT NOT NULL,
		finalized_by TEXT NOT NULL DEFAULT '',
		seq INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_sender ON transfers(sender);
	CREATE INDEX IF NOT EXISTS idx_transfers_receiver ON transfers(receiver);
	CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status);

	-- Payroll execution artifacts.
	CREATE TABLE IF NOT EXISTS bulk_transfers (
		key TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		total_amount INTEGER NOT NULL,
		asset TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bulk_recipients (
		bulk_key TEXT NOT NULL REFERENCES bulk_transfers(key),
		position INTEGER NOT NULL,
		address TEXT NOT NULL,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL,
		verification_code TEXT NOT NULL,
		finalized_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (bulk_key, position)
	);

	CREATE INDEX IF NOT EXISTS idx_bulk_recipients_address
		ON bulk_recipients(address);

	-- Immutable payroll definitions, indexed by owner for listing.
	CREATE TABLE IF NOT EXISTS payrolls (
		name TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		asset TEXT NOT NULL,
		created_at TEXT NOT NULL,
		seq INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_payrolls_owner ON payrolls(owner);

	CREATE TABLE IF NOT EXISTS payroll_entries (
		payroll_name TEXT NOT NULL REFERENCES payrolls(name),
		position INTEGER NOT NULL,
		address TEXT NOT NULL,
		amount INTEGER NOT NULL,
		PRIMARY KEY (payroll_name, position)
	);

	-- One pooled balance per asset kind.
	CREATE TABLE IF NOT EXISTS pool_balances (
		asset TEXT PRIMARY KEY,
		balance INTEGER NOT NULL
	);

	-- Directory entries.
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		handle TEXT UNIQUE,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query helper
// works inside and outside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (s *Store) InsertTransfer(ctx context.Context, rec ledger.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransfer(ctx, s.db, rec)
}

func insertTransfer(ctx context.Context, db dbtx, rec ledger.TransferRecord) error {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfers WHERE key = ?`, string(rec.Key)).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ledger.ErrDuplicateKey
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO transfers (key, sender, receiver, amount, asset, status,
			verification_code, created_at, finalized_by, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM transfers))`,
		string(rec.Key), string(rec.Sender), string(rec.Receiver),
		int64(rec.Amount), string(rec.Asset), string(rec.Status),
		rec.VerificationCode, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(rec.FinalizedBy))
	return err
}

func (s *Store) GetTransfer(ctx context.Context, key ledger.TxKey) (*ledger.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransfer(ctx, s.db, key)
}

func getTransfer(ctx context.Context, db dbtx, key ledger.TxKey) (*ledger.TransferRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT key, sender, receiver, amount, asset, status,
			verification_code, created_at, finalized_by
		FROM transfers WHERE key = ?`, string(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanTransfer(rows)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) FinalizeTransfer(ctx context.Context, key ledger.TxKey, status ledger.TransferStatus, finalizedBy ledger.TxKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return finalizeTransfer(ctx, s.db, key, status, finalizedBy)
}

func finalizeTransfer(ctx context.Context, db dbtx, key ledger.TxKey, status ledger.TransferStatus, finalizedBy ledger.TxKey) error {
	res, err := db.ExecContext(ctx, `
		UPDATE transfers SET status = ?, finalized_by = ? WHERE key = ?`,
		string(status), string(finalizedBy), string(key))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) ListTransfersByAccount(ctx context.Context, account ledger.AccountID) ([]ledger.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransfersByAccount(ctx, s.db, account)
}

func listTransfersByAccount(ctx context.Context, db dbtx, account ledger.AccountID) ([]ledger.TransferRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT key, sender, receiver, amount, asset, status,
			verification_code, created_at, finalized_by
		FROM transfers WHERE sender = ? OR receiver = ?
		ORDER BY seq`, string(account), string(account))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.TransferRecord
	for rows.Next() {
		rec, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanTransfer(rows *sql.Rows) (ledger.TransferRecord, error) {
	var (
		key, sender, receiver, asset, status, code, createdAt, finalizedBy string
		amount                                                             int64
	)
	if err := rows.Scan(&key, &sender, &receiver, &amount, &asset, &status,
		&code, &createdAt, &finalizedBy); err != nil {
		return ledger.TransferRecord{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ledger.TransferRecord{}, fmt.Errorf("invalid created_at: %w", err)
	}
	return ledger.TransferRecord{
		Key:              ledger.TxKey(key),
		Sender:           ledger.AccountID(sender),
		Receiver:         ledger.AccountID(receiver),
		Amount:           uint64(amount),
		Asset:            ledger.AssetKind(asset),
		Status:           ledger.TransferStatus(status),
		VerificationCode: code,
		CreatedAt:        created,
		FinalizedBy:      ledger.TxKey(finalizedBy),
	}, nil
}

// =============================================================================
// BULK TRANSFERS
// =============================================================================

func (s *Store) InsertBulkTransfer(ctx context.Context, rec ledger.BulkTransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertBulkTransfer(ctx, s.db, rec)
}

func insertBulkTransfer(ctx context.Context, db dbtx, rec ledger.BulkTransferRecord) error {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bulk_transfers WHERE key = ?`, string(rec.Key)).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ledger.ErrDuplicateKey
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO bulk_transfers (key, sender, total_amount, asset, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(rec.Key), string(rec.Sender), int64(rec.TotalAmount),
		string(rec.Asset), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	for i, r := range rec.Recipients {
		_, err = db.ExecContext(ctx, `
			INSERT INTO bulk_recipients (bulk_key, position, address, amount,
				status, verification_code, finalized_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(rec.Key), i, string(r.Address), int64(r.Amount),
			string(r.Status), r.VerificationCode,
			string(rec.FinalizedBy[r.Address]))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetBulkTransfer(ctx context.Context, key ledger.TxKey) (*ledger.BulkTransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBulkTransfer(ctx, s.db, key)
}

func getBulkTransfer(ctx context.Context, db dbtx, key ledger.TxKey) (*ledger.BulkTransferRecord, error) {
	var (
		sender, asset, createdAt string
		total                    int64
	)
	err := db.QueryRowContext(ctx, `
		SELECT sender, total_amount, asset, created_at
		FROM bulk_transfers WHERE key = ?`, string(key)).
		Scan(&sender, &total, &asset, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}

	rec := ledger.BulkTransferRecord{
		Key:         key,
		Sender:      ledger.AccountID(sender),
		TotalAmount: uint64(total),
		Asset:       ledger.AssetKind(asset),
		CreatedAt:   created,
		FinalizedBy: make(map[ledger.AccountID]ledger.TxKey),
	}

	rows, err := db.QueryContext(ctx, `
		SELECT address, amount, status, verification_code, finalized_by
		FROM bulk_recipients WHERE bulk_key = ? ORDER BY position`, string(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			address, status, code, finalizedBy string
			amount                             int64
		)
		if err := rows.Scan(&address, &amount, &status, &code, &finalizedBy); err != nil {
			return nil, err
		}
		rec.Recipients = append(rec.Recipients, ledger.Recipient{
			Address:          ledger.AccountID(address),
			Amount:           uint64(amount),
			Status:           ledger.TransferStatus(status),
			VerificationCode: code,
		})
		if finalizedBy != "" {
			rec.FinalizedBy[ledger.AccountID(address)] = ledger.TxKey(finalizedBy)
		}
	}
	return &rec, rows.Err()
}

// =============================================================================
// PAYROLLS
// =============================================================================

func (s *Store) InsertPayroll(ctx context.Context, def ledger.PayrollDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPayroll(ctx, s.db, def)
}

func insertPayroll(ctx context.Context, db dbtx, def ledger.PayrollDefinition) error {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payrolls WHERE name = ?`, string(def.Name)).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ledger.ErrPayrollAlreadyExists
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO payrolls (name, owner, asset, created_at, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM payrolls))`,
		string(def.Name), string(def.Owner), string(def.Asset),
		def.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	for i, addr := range def.Recipients {
		_, err = db.ExecContext(ctx, `
			INSERT INTO payroll_entries (payroll_name, position, address, amount)
			VALUES (?, ?, ?, ?)`,
			string(def.Name), i, string(addr), int64(def.Amounts[i]))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetPayroll(ctx context.Context, name ledger.PayrollName) (*ledger.PayrollDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPayroll(ctx, s.db, name)
}

func getPayroll(ctx context.Context, db dbtx, name ledger.PayrollName) (*ledger.PayrollDefinition, error) {
	var owner, asset, createdAt string
	err := db.QueryRowContext(ctx, `
		SELECT owner, asset, created_at FROM payrolls WHERE name = ?`,
		string(name)).Scan(&owner, &asset, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}

	def := ledger.PayrollDefinition{
		Name:      name,
		Owner:     ledger.AccountID(owner),
		Asset:     ledger.AssetKind(asset),
		CreatedAt: created,
	}

	rows, err := db.QueryContext(ctx, `
		SELECT address, amount FROM payroll_entries
		WHERE payroll_name = ? ORDER BY position`, string(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			address string
			amount  int64
		)
		if err := rows.Scan(&address, &amount); err != nil {
			return nil, err
		}
		def.Recipients = append(def.Recipients, ledger.AccountID(address))
		def.Amounts = append(def.Amounts, uint64(amount))
	}
	return &def, rows.Err()
}

func (s *Store) ListPayrollsByOwner(ctx context.Context, owner ledger.AccountID) ([]ledger.PayrollDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPayrollsByOwner(ctx, s.db, owner)
}

func listPayrollsByOwner(ctx context.Context, db dbtx, owner ledger.AccountID) ([]ledger.PayrollDefinition, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM payrolls WHERE owner = ? ORDER BY seq`, string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []ledger.PayrollName
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, ledger.PayrollName(name))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var result []ledger.PayrollDefinition
	for _, name := range names {
		def, err := getPayroll(ctx, db, name)
		if err != nil {
			return nil, err
		}
		if def != nil {
			result = append(result, *def)
		}
	}
	return result, nil
}

// =============================================================================
// POOL BALANCES
// =============================================================================

func (s *Store) PoolBalance(ctx context.Context, kind ledger.AssetKind) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return poolBalance(ctx, s.db, kind)
}

func poolBalance(ctx context.Context, db dbtx, kind ledger.AssetKind) (uint64, error) {
	var balance int64
	err := db.QueryRowContext(ctx,
		`SELECT balance FROM pool_balances WHERE asset = ?`, string(kind)).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(balance), nil
}

func (s *Store) SetPoolBalance(ctx context.Context, kind ledger.AssetKind, balance uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setPoolBalance(ctx, s.db, kind, balance)
}

func setPoolBalance(ctx context.Context, db dbtx, kind ledger.AssetKind, balance uint64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pool_balances (asset, balance) VALUES (?, ?)
		ON CONFLICT(asset) DO UPDATE SET balance = excluded.balance`,
		string(kind), int64(balance))
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. Rolled back if fn
// returns an error, committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore routes Store calls through the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertTransfer(ctx context.Context, rec ledger.TransferRecord) error {
	return insertTransfer(ctx, ts.tx, rec)
}

func (ts *txStore) GetTransfer(ctx context.Context, key ledger.TxKey) (*ledger.TransferRecord, error) {
	return getTransfer(ctx, ts.tx, key)
}

func (ts *txStore) FinalizeTransfer(ctx context.Context, key ledger.TxKey, status ledger.TransferStatus, finalizedBy ledger.TxKey) error {
	return finalizeTransfer(ctx, ts.tx, key, status, finalizedBy)
}

func (ts *txStore) ListTransfersByAccount(ctx context.Context, account ledger.AccountID) ([]ledger.TransferRecord, error) {
	return listTransfersByAccount(ctx, ts.tx, account)
}

func (ts *txStore) InsertBulkTransfer(ctx context.Context, rec ledger.BulkTransferRecord) error {
	return insertBulkTransfer(ctx, ts.tx, rec)
}

func (ts *txStore) GetBulkTransfer(ctx context.Context, key ledger.TxKey) (*ledger.BulkTransferRecord, error) {
	return getBulkTransfer(ctx, ts.tx, key)
}

func (ts *txStore) InsertPayroll(ctx context.Context, def ledger.PayrollDefinition) error {
	return insertPayroll(ctx, ts.tx, def)
}

func (ts *txStore) GetPayroll(ctx context.Context, name ledger.PayrollName) (*ledger.PayrollDefinition, error) {
	return getPayroll(ctx, ts.tx, name)
}

func (ts *txStore) ListPayrollsByOwner(ctx context.Context, owner ledger.AccountID) ([]ledger.PayrollDefinition, error) {
	return listPayrollsByOwner(ctx, ts.tx, owner)
}

func (ts *txStore) PoolBalance(ctx context.Context, kind ledger.AssetKind) (uint64, error) {
	return poolBalance(ctx, ts.tx, kind)
}

func (ts *txStore) SetPoolBalance(ctx context.Context, kind ledger.AssetKind, balance uint64) error {
	return setPoolBalance(ctx, ts.tx, kind, balance)
}

// =============================================================================
// ACCOUNTS (directory.Store)
// =============================================================================

func (s *Store) InsertAccount(ctx context.Context, acct directory.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE id = ?`, string(acct.ID)).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ledger.ErrDuplicateKey
	}

	var handle any
	if acct.Handle != "" {
		handle = acct.Handle
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, handle, created_at)
		VALUES (?, ?, ?, ?)`,
		string(acct.ID), acct.Name, handle,
		acct.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAccount(ctx, `SELECT id, name, handle, created_at FROM accounts WHERE id = ?`, string(id))
}

func (s *Store) GetAccountByHandle(ctx context.Context, handle string) (*directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAccount(ctx, `SELECT id, name, handle, created_at FROM accounts WHERE handle = ?`, handle)
}

func (s *Store) queryAccount(ctx context.Context, query string, arg any) (*directory.Account, error) {
	var (
		id, name, createdAt string
		handle              sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&id, &name, &handle, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	return &directory.Account{
		ID:        ledger.AccountID(id),
		Name:      name,
		Handle:    handle.String,
		CreatedAt: created,
	}, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, handle, created_at FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []directory.Account
	for rows.Next() {
		var (
			id, name, createdAt string
			handle              sql.NullString
		)
		if err := rows.Scan(&id, &name, &handle, &createdAt); err != nil {
			return nil, err
		}
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at: %w", err)
		}
		result = append(result, directory.Account{
			ID:        ledger.AccountID(id),
			Name:      name,
			Handle:    handle.String,
			CreatedAt: created,
		})
	}
	return result, rows.Err()
}
