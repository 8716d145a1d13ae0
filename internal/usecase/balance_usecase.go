package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// BalanceUseCase folds posted journal lines into account balances.
type BalanceUseCase struct {
	accountRepo AccountRepository
	balanceRepo BalanceRepository
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(accountRepo AccountRepository, balanceRepo BalanceRepository) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo: accountRepo,
		balanceRepo: balanceRepo,
	}
}

// AccountBalance is one account's balance, raw and signed by its normal side.
type AccountBalance struct {
	Account       *domain.Account
	From          *time.Time
	To            time.Time
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Balance       decimal.Decimal
	NormalBalance decimal.Decimal
}

// AccountBalance returns the account's posted activity up to the end of asOf.
func (uc *BalanceUseCase) AccountBalance(ctx context.Context, accountID string, asOf time.Time) (*AccountBalance, error) {
	return uc.balance(ctx, accountID, nil, domain.EndOfDay(asOf))
}

// AccountBalanceForRange returns the account's posted activity within [from, to], whole days inclusive.
func (uc *BalanceUseCase) AccountBalanceForRange(ctx context.Context, accountID string, from, to time.Time) (*AccountBalance, error) {
	r := domain.NewDateRange(from, to)
	if !r.Valid() {
		return nil, domain.NewValidationError("from", "must not be after to")
	}
	return uc.balance(ctx, accountID, &r.From, r.To)
}

func (uc *BalanceUseCase) balance(ctx context.Context, accountID string, from *time.Time, to time.Time) (*AccountBalance, error) {
	account, err := uc.accountRepo.GetByID(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}

	balances, err := uc.balanceRepo.SumByAccount(ctx, nil, domain.BalanceFilter{
		AccountIDs: []string{accountID},
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, err
	}

	b := balances.Get(accountID)
	return &AccountBalance{
		Account:       account,
		From:          from,
		To:            to,
		Debit:         b.Debit,
		Credit:        b.Credit,
		Balance:       b.Balance,
		NormalBalance: account.NormalBalance(b.Debit, b.Credit),
	}, nil
}

// Balances returns balances for every account matching filter, within tx when given.
func (uc *BalanceUseCase) Balances(ctx context.Context, tx Transaction, filter domain.BalanceFilter) (domain.Balances, error) {
	return uc.balanceRepo.SumByAccount(ctx, tx, filter)
}
