package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

// ReportRepositories groups the read ports reports draw from.
type ReportRepositories struct {
	Accounts    AccountRepository
	Balances    BalanceRepository
	Stores      StoreRepository
	Orders      OrderRepository
	Refunds     RefundRepository
	Documents   DocumentRepository
	Rates       ExchangeRateRepository
	Budgets     BudgetRepository
	Inventory   InventoryRepository
	FixedAssets FixedAssetRepository
	Audit       AuditRepository
}

// ReportUseCase computes financial statements from posted journal lines.
// Every report reads one consistent snapshot of the ledger.
type ReportUseCase struct {
	txManager TransactionManager
	repos     ReportRepositories
	cache     ReportCache
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewReportUseCase creates a new ReportUseCase. cache may be nil.
func NewReportUseCase(
	txManager TransactionManager,
	repos ReportRepositories,
	cache ReportCache,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *ReportUseCase {
	return &ReportUseCase{
		txManager: txManager,
		repos:     repos,
		cache:     cache,
		logger:    logger.With().Str("component", "reports").Logger(),
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Period is the inclusive date span a report covers.
type Period struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func periodOf(r domain.DateRange) Period {
	return Period{StartDate: r.From, EndDate: r.To}
}

// AccountAmount is an account with the amount a report attributes to it.
type AccountAmount struct {
	AccountID string             `json:"accountId"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      domain.AccountType `json:"type"`
	Amount    decimal.Decimal    `json:"amount"`
}

// runReport builds a report inside a snapshot transaction, through the cache
// when one is configured, and records its duration.
func runReport[T any](
	ctx context.Context,
	uc *ReportUseCase,
	name string,
	params []string,
	build func(ctx context.Context, tx Transaction) (*T, error),
) (*T, error) {
	start := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.ReportDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}()

	load := func(ctx context.Context) (*T, error) {
		tx, err := uc.txManager.BeginSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		result, err := build(ctx, tx)
		if err != nil {
			return nil, err
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return result, nil
	}

	if uc.cache == nil {
		return load(ctx)
	}

	key := "report:" + name
	if len(params) > 0 {
		key += ":" + strings.Join(params, ":")
	}

	var result T
	err := uc.cache.Fetch(ctx, key, &result, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// flagImbalance logs and counts a non-zero integrity difference.
func (uc *ReportUseCase) flagImbalance(report string, difference decimal.Decimal, fields map[string]any) {
	if difference.IsZero() {
		return
	}
	uc.logger.Error().
		Str("report", report).
		Str("difference", difference.StringFixed(2)).
		Fields(fields).
		Msg("report integrity check failed")
	if uc.metrics != nil {
		uc.metrics.ReportImbalances.WithLabelValues(report).Inc()
	}
}

// ledgerView bundles the accounts and balances a statement works from.
type ledgerView struct {
	accounts []*domain.Account
	balances domain.Balances
}

func (uc *ReportUseCase) loadView(ctx context.Context, tx Transaction, from *time.Time, to time.Time, storeID *string) (*ledgerView, error) {
	accounts, err := uc.repos.Accounts.List(ctx, tx, domain.AccountFilter{})
	if err != nil {
		return nil, err
	}
	balances, err := uc.repos.Balances.SumByAccount(ctx, tx, domain.BalanceFilter{From: from, To: to, StoreID: storeID})
	if err != nil {
		return nil, err
	}
	return &ledgerView{accounts: accounts, balances: balances}, nil
}

// sumTypes totals the normal-signed balances of accounts of the given types.
func (v *ledgerView) sumTypes(types ...domain.AccountType) decimal.Decimal {
	total := decimal.Zero
	for _, a := range v.accounts {
		if !typeIn(a.Type, types) {
			continue
		}
		b := v.balances.Get(a.ID)
		total = total.Add(a.NormalBalance(b.Debit, b.Credit))
	}
	return total
}

// sumRole totals the normal-signed balances of accounts playing role.
func (v *ledgerView) sumRole(role domain.AccountRole) decimal.Decimal {
	total := decimal.Zero
	for _, a := range v.accounts {
		if !a.HasRole(role) {
			continue
		}
		b := v.balances.Get(a.ID)
		total = total.Add(a.NormalBalance(b.Debit, b.Credit))
	}
	return total
}

// amounts lists accounts of the given types with non-zero normal-signed balances.
func (v *ledgerView) amounts(types ...domain.AccountType) []AccountAmount {
	out := make([]AccountAmount, 0)
	for _, a := range v.accounts {
		if !typeIn(a.Type, types) {
			continue
		}
		b := v.balances.Get(a.ID)
		if b.Debit.IsZero() && b.Credit.IsZero() {
			continue
		}
		out = append(out, AccountAmount{
			AccountID: a.ID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
			Amount:    a.NormalBalance(b.Debit, b.Credit),
		})
	}
	return out
}

func typeIn(t domain.AccountType, types []domain.AccountType) bool {
	for _, candidate := range types {
		if t == candidate {
			return true
		}
	}
	return false
}

func sumAmounts(items []AccountAmount) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func optionalKey(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// percentOf returns part/whole*100 rounded to two places, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}

// defaultRange resolves optional bounds, defaulting to year start through today.
func (uc *ReportUseCase) defaultRange(from, to *time.Time) (domain.DateRange, error) {
	now := uc.now()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := now
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}
	r := domain.NewDateRange(start, end)
	if !r.Valid() {
		return r, domain.NewValidationError("startDate", "must not be after endDate")
	}
	return r, nil
}

func (uc *ReportUseCase) asOfOrToday(asOf *time.Time) time.Time {
	if asOf != nil {
		return domain.EndOfDay(*asOf)
	}
	return domain.EndOfDay(uc.now())
}
