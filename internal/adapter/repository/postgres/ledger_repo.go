package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/postgres/generated"
	"github.com/iho/gobooks/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db generated.DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency sums every posted debit and credit in the ledger.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (totalDebit decimal.Decimal, totalCredit decimal.Decimal, err error) {
	result, err := generated.New(r.db).CheckLedgerConsistency(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(result.TotalDebit), numericToDecimal(result.TotalCredit), nil
}

// BalanceRepository implements usecase.BalanceRepository.
type BalanceRepository struct {
	db generated.DBTX
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db generated.DBTX) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// SumByAccount folds posted lines in the filter window into per-account balances.
func (r *BalanceRepository) SumByAccount(ctx context.Context, tx usecase.Transaction, filter domain.BalanceFilter) (domain.Balances, error) {
	ids := filter.AccountIDs
	if ids == nil {
		ids = []string{}
	}

	rows, err := generated.New(conn(r.db, tx)).SumPostedByAccount(ctx, generated.SumPostedByAccountParams{
		ToDate:     timeToPgTimestamptz(filter.To),
		FromDate:   optionalTimestamptz(filter.From),
		StoreID:    optionalText(filter.StoreID),
		AccountIds: ids,
	})
	if err != nil {
		return nil, err
	}

	balances := make(domain.Balances, len(rows))
	for _, row := range rows {
		balances[row.AccountID] = domain.NewBalance(numericToDecimal(row.Debit), numericToDecimal(row.Credit))
	}

	return balances, nil
}
