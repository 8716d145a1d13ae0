package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// Repository methods take an optional Transaction. A nil tx runs the call
// outside any unit of work.

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	Update(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	GetByCode(ctx context.Context, tx Transaction, code string) (*domain.Account, error)
	GetByIDs(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// List returns accounts ordered by code ascending.
	List(ctx context.Context, tx Transaction, filter domain.AccountFilter) ([]*domain.Account, error)
}

// JournalRepository defines data access for journal entries and their lines.
type JournalRepository interface {
	// Create stores the entry and its lines. A taken reference returns
	// domain.ErrDuplicateReference; a second reversal of the same entry
	// returns domain.ErrAlreadyReversed.
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.JournalEntry, error)
	GetByReference(ctx context.Context, tx Transaction, reference string) (*domain.JournalEntry, error)
	// MarkPosted flips an unposted entry to posted and reports whether a row changed.
	MarkPosted(ctx context.Context, tx Transaction, id string, postedAt time.Time) (bool, error)
	HasReversal(ctx context.Context, tx Transaction, id string) (bool, error)
	// List returns entries ordered by date desc, created_at desc, and the unpaged total.
	List(ctx context.Context, tx Transaction, filter domain.JournalFilter) ([]*domain.JournalEntry, int64, error)
}

// BalanceRepository folds posted journal lines into balances.
type BalanceRepository interface {
	SumByAccount(ctx context.Context, tx Transaction, filter domain.BalanceFilter) (domain.Balances, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	// CheckConsistency sums every posted debit and credit.
	CheckConsistency(ctx context.Context) (totalDebit, totalCredit decimal.Decimal, err error)
}

// StoreRepository defines data access for storefronts.
type StoreRepository interface {
	Upsert(ctx context.Context, tx Transaction, store *domain.Store) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Store, error)
	List(ctx context.Context, tx Transaction) ([]*domain.Store, error)
}

// OrderRepository defines data access for commerce orders.
type OrderRepository interface {
	// Upsert inserts or updates by external ID and fills in the stored ID.
	Upsert(ctx context.Context, tx Transaction, order *domain.Order) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Order, error)
	List(ctx context.Context, tx Transaction, filter domain.CommerceFilter) ([]*domain.Order, error)
	// ListUnmatched returns orders without a reconciliation match, oldest first.
	ListUnmatched(ctx context.Context, tx Transaction, storeID *string) ([]*domain.Order, error)
}

// RefundRepository defines data access for refunds.
type RefundRepository interface {
	Upsert(ctx context.Context, tx Transaction, refund *domain.Refund) error
	List(ctx context.Context, tx Transaction, filter domain.CommerceFilter) ([]*domain.Refund, error)
}

// PayoutRepository defines data access for payouts.
type PayoutRepository interface {
	Upsert(ctx context.Context, tx Transaction, payout *domain.Payout) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Payout, error)
	// ListUnmatched returns payouts without a reconciliation match, oldest first.
	ListUnmatched(ctx context.Context, tx Transaction, storeID *string) ([]*domain.Payout, error)
}

// DocumentRepository defines data access for invoices and bills.
type DocumentRepository interface {
	Create(ctx context.Context, tx Transaction, doc *domain.Document) error
	List(ctx context.Context, tx Transaction, filter domain.DocumentFilter) ([]*domain.Document, error)
}

// ExchangeRateRepository defines data access for exchange rates.
type ExchangeRateRepository interface {
	Create(ctx context.Context, tx Transaction, rate *domain.ExchangeRate) error
	// Latest returns the newest rate from->to effective on or before asOf,
	// or nil when there is none.
	Latest(ctx context.Context, tx Transaction, from, to string, asOf time.Time) (*domain.ExchangeRate, error)
}

// BudgetRepository defines data access for budgets.
type BudgetRepository interface {
	Upsert(ctx context.Context, tx Transaction, budget *domain.Budget) error
	// List returns budgets for the year; month 0 returns every month.
	List(ctx context.Context, tx Transaction, fiscalYear, month int) ([]*domain.Budget, error)
}

// InventoryRepository defines data access for inventory items and their movements.
type InventoryRepository interface {
	CreateItem(ctx context.Context, tx Transaction, item *domain.InventoryItem) error
	AddMovement(ctx context.Context, tx Transaction, itemID string, movement domain.StockMovement) error
	// List returns items with their movements, oldest movement first.
	List(ctx context.Context, tx Transaction) ([]*domain.InventoryItem, error)
}

// FixedAssetRepository defines data access for the fixed-asset register.
type FixedAssetRepository interface {
	Create(ctx context.Context, tx Transaction, asset *domain.FixedAsset) error
	List(ctx context.Context, tx Transaction) ([]*domain.FixedAsset, error)
}

// ReconciliationRepository defines data access for payout/order matches.
type ReconciliationRepository interface {
	Create(ctx context.Context, tx Transaction, match *domain.ReconciliationMatch) error
	Update(ctx context.Context, tx Transaction, match *domain.ReconciliationMatch) error
	Delete(ctx context.Context, tx Transaction, id string) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.ReconciliationMatch, error)
	List(ctx context.Context, tx Transaction, filter domain.MatchFilter) ([]*domain.ReconciliationMatch, int64, error)
}

// SettingsRepository defines data access for posting defaults.
type SettingsRepository interface {
	// Get returns the stored settings, or an empty Settings when none were saved.
	Get(ctx context.Context, tx Transaction) (*domain.Settings, error)
	Save(ctx context.Context, tx Transaction, settings *domain.Settings) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	// List returns the newest logs first.
	List(ctx context.Context, tx Transaction, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
	// BeginSnapshot starts a read-only repeatable-read transaction for reports.
	BeginSnapshot(ctx context.Context) (Transaction, error)
	// BeginSerializable starts a serializable read-write transaction.
	BeginSerializable(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation that failed on a transient database conflict.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ReferenceGenerator generates journal entry references.
type ReferenceGenerator interface {
	Generate(prefix string) string
}

// ReportCache memoizes report results keyed by name, parameters and ledger version.
type ReportCache interface {
	// Fetch fills dest from the cache, or from load on a miss.
	Fetch(ctx context.Context, key string, dest any, load func(context.Context) (any, error)) error
	// Invalidate makes every cached report stale.
	Invalidate(ctx context.Context) error
}

// EventQueue hands commerce events to background processing.
type EventQueue interface {
	EnqueueOrderPaid(ctx context.Context, input OrderPaidInput) error
	EnqueueRefund(ctx context.Context, input RefundInput) error
	EnqueuePayout(ctx context.Context, input PayoutInput) error
	EnqueueCOGS(ctx context.Context, input COGSInput) error
}

// IdempotencyPending is the value held by an idempotency key while its
// first request is still running.
const IdempotencyPending = "processing"

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not complete, so a retry can run.
	Release(ctx context.Context, key string) error
}
