// Package sqlite is the embedded storage driver. It backs STORAGE_DRIVER=sqlite
// and the behavior tests of the use cases.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// Store owns a single-connection writer pool and a reader pool over one WAL
// database. The writer pool serializes every write transaction.
type Store struct {
	writer  *sql.DB
	reader  *sql.DB
	tempDir string
}

// Open opens or creates the database at path and applies the schema. An empty
// path creates a throwaway database that Close removes.
func Open(path string) (*Store, error) {
	var tempDir string
	if path == "" {
		dir, err := os.MkdirTemp("", "gobooks-")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		tempDir = dir
		path = filepath.Join(dir, "ledger.db")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	s := &Store{writer: writer, reader: reader, tempDir: tempDir}
	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes both pools and removes a throwaway database.
func (s *Store) Close() error {
	err := errors.Join(s.writer.Close(), s.reader.Close())
	if s.tempDir != "" {
		err = errors.Join(err, os.RemoveAll(s.tempDir))
	}
	return err
}

// Tx wraps a database transaction. Write transactions hold the writer
// connection until they finish.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// TxManager implements usecase.TransactionManager over a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a write transaction on the writer connection.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	return begin(ctx, m.store.writer)
}

// BeginSnapshot starts a read transaction. Its view of the database is fixed
// by its first read and never includes uncommitted writes.
func (m *TxManager) BeginSnapshot(ctx context.Context) (usecase.Transaction, error) {
	return begin(ctx, m.store.reader)
}

// BeginSerializable starts a write transaction. Writes already run one at a time.
func (m *TxManager) BeginSerializable(ctx context.Context) (usecase.Transaction, error) {
	return begin(ctx, m.store.writer)
}

func begin(ctx context.Context, db *sql.DB) (*Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// querier is what *sql.DB and *sql.Tx have in common.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func txOf(tx usecase.Transaction) *sql.Tx {
	if t, ok := tx.(*Tx); ok && t != nil {
		return t.tx
	}
	return nil
}

// read returns tx when set, otherwise the reader pool.
func (s *Store) read(tx usecase.Transaction) querier {
	if t := txOf(tx); t != nil {
		return t
	}
	return s.reader
}

// write returns tx when set, otherwise the writer pool.
func (s *Store) write(tx usecase.Transaction) querier {
	if t := txOf(tx); t != nil {
		return t
	}
	return s.writer
}

// atomic runs fn inside tx, or inside a transaction of its own when tx is nil.
func (s *Store) atomic(ctx context.Context, tx usecase.Transaction, fn func(q querier) error) error {
	if t := txOf(tx); t != nil {
		return fn(t)
	}
	own, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer own.Rollback()

	if err := fn(own); err != nil {
		return err
	}
	return own.Commit()
}

// Repositories returns every repository backed by store.
func Repositories(store *Store) Repos {
	return Repos{
		Accounts:       &AccountRepository{s: store},
		Journal:        &JournalRepository{s: store},
		Balances:       &BalanceRepository{s: store},
		Ledger:         &LedgerRepository{s: store},
		Stores:         &StoreRepository{s: store},
		Orders:         &OrderRepository{s: store},
		Refunds:        &RefundRepository{s: store},
		Payouts:        &PayoutRepository{s: store},
		Reconciliation: &ReconciliationRepository{s: store},
		Documents:      &DocumentRepository{s: store},
		Rates:          &ExchangeRateRepository{s: store},
		Budgets:        &BudgetRepository{s: store},
		Inventory:      &InventoryRepository{s: store},
		FixedAssets:    &FixedAssetRepository{s: store},
		Settings:       &SettingsRepository{s: store},
		Outbox:         &OutboxRepository{s: store},
		Audit:          &AuditRepository{s: store},
	}
}

// Repos bundles the sqlite repositories.
type Repos struct {
	Accounts       *AccountRepository
	Journal        *JournalRepository
	Balances       *BalanceRepository
	Ledger         *LedgerRepository
	Stores         *StoreRepository
	Orders         *OrderRepository
	Refunds        *RefundRepository
	Payouts        *PayoutRepository
	Reconciliation *ReconciliationRepository
	Documents      *DocumentRepository
	Rates          *ExchangeRateRepository
	Budgets        *BudgetRepository
	Inventory      *InventoryRepository
	FixedAssets    *FixedAssetRepository
	Settings       *SettingsRepository
	Outbox         *OutboxRepository
	Audit          *AuditRepository
}

// mapConstraintError turns unique violations into domain errors.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: accounts.code"):
		return domain.ErrDuplicateAccountCode
	case strings.Contains(msg, "UNIQUE constraint failed: journal_entries.reference"):
		return domain.ErrDuplicateReference
	case strings.Contains(msg, "UNIQUE constraint failed: journal_entries.reverses_id"):
		return domain.ErrAlreadyReversed
	}
	return err
}

// Times are stored as fixed-width UTC text so they sort and compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func ts(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func textOf(src any) (string, bool) {
	switch v := src.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

// timeCol scans a column written by ts.
type timeCol struct{ dst *time.Time }

func (c timeCol) Scan(src any) error {
	if t, ok := src.(time.Time); ok {
		*c.dst = t.UTC()
		return nil
	}
	s, ok := textOf(src)
	if !ok {
		return fmt.Errorf("scan %T into time", src)
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return err
	}
	*c.dst = t
	return nil
}

// nullTimeCol scans a nullable time column.
type nullTimeCol struct{ dst **time.Time }

func (c nullTimeCol) Scan(src any) error {
	if src == nil {
		*c.dst = nil
		return nil
	}
	var t time.Time
	if err := (timeCol{dst: &t}).Scan(src); err != nil {
		return err
	}
	*c.dst = &t
	return nil
}

// nullTextCol scans a nullable text column.
type nullTextCol struct{ dst **string }

func (c nullTextCol) Scan(src any) error {
	if src == nil {
		*c.dst = nil
		return nil
	}
	s, ok := textOf(src)
	if !ok {
		return fmt.Errorf("scan %T into string", src)
	}
	*c.dst = &s
	return nil
}

// filter accumulates WHERE conditions and their arguments.
type filter struct {
	conds []string
	args  []any
}

func (f *filter) add(cond string, args ...any) {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, args...)
}

func (f *filter) in(column string, values []string) {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	f.conds = append(f.conds, column+" IN ("+marks+")")
	for _, v := range values {
		f.args = append(f.args, v)
	}
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// page renders LIMIT/OFFSET; a zero limit keeps everything after offset.
func page(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	return ""
}
