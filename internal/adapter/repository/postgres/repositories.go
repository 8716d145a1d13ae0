package postgres

import (
	"github.com/iho/gobooks/internal/infrastructure/postgres/generated"
	"github.com/iho/gobooks/internal/usecase"
)

// Repos holds every repository bound to one pool.
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

// Repositories builds every repository on db.
func Repositories(db generated.DBTX, idGen usecase.IDGenerator) Repos {
	return Repos{
		Accounts:       NewAccountRepository(db),
		Journal:        NewJournalRepository(db),
		Balances:       NewBalanceRepository(db),
		Ledger:         NewLedgerRepository(db),
		Stores:         NewStoreRepository(db),
		Orders:         NewOrderRepository(db),
		Refunds:        NewRefundRepository(db),
		Payouts:        NewPayoutRepository(db),
		Reconciliation: NewReconciliationRepository(db),
		Documents:      NewDocumentRepository(db),
		Rates:          NewExchangeRateRepository(db),
		Budgets:        NewBudgetRepository(db),
		Inventory:      NewInventoryRepository(db),
		FixedAssets:    NewFixedAssetRepository(db),
		Settings:       NewSettingsRepository(db),
		Outbox:         NewOutboxRepository(db),
		Audit:          NewAuditRepository(db, idGen),
	}
}
