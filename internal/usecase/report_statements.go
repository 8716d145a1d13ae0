package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// TrialBalanceLine is one account's column totals.
type TrialBalanceLine struct {
	AccountID string             `json:"accountId"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      domain.AccountType `json:"type"`
	Debit     decimal.Decimal    `json:"debit"`
	Credit    decimal.Decimal    `json:"credit"`
	Balance   decimal.Decimal    `json:"balance"`
}

// TrialBalanceTotals sums the debit and credit columns.
type TrialBalanceTotals struct {
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	Difference   decimal.Decimal `json:"difference"`
}

// TrialBalance lists every account's debits and credits as of a date.
type TrialBalance struct {
	AsOfDate time.Time          `json:"asOfDate"`
	Accounts []TrialBalanceLine `json:"trialBalance"`
	Totals   TrialBalanceTotals `json:"totals"`
	Balanced bool               `json:"balanced"`
}

// TrialBalance sums posted debits and credits per account through asOf.
// Active accounts always appear; inactive ones only when they carry activity,
// so the columns still close.
func (uc *ReportUseCase) TrialBalance(ctx context.Context, asOf *time.Time) (*TrialBalance, error) {
	date := uc.asOfOrToday(asOf)

	return runReport(ctx, uc, "trial_balance", []string{dateKey(date)}, func(ctx context.Context, tx Transaction) (*TrialBalance, error) {
		view, err := uc.loadView(ctx, tx, nil, date, nil)
		if err != nil {
			return nil, err
		}

		tb := &TrialBalance{AsOfDate: date, Accounts: make([]TrialBalanceLine, 0, len(view.accounts))}
		debits, credits := decimal.Zero, decimal.Zero

		for _, a := range view.accounts {
			b := view.balances.Get(a.ID)
			if !a.IsActive && b.Debit.IsZero() && b.Credit.IsZero() {
				continue
			}
			tb.Accounts = append(tb.Accounts, TrialBalanceLine{
				AccountID: a.ID,
				Code:      a.Code,
				Name:      a.Name,
				Type:      a.Type,
				Debit:     b.Debit,
				Credit:    b.Credit,
				Balance:   a.NormalBalance(b.Debit, b.Credit),
			})
			debits = debits.Add(b.Debit)
			credits = credits.Add(b.Credit)
		}

		tb.Totals = TrialBalanceTotals{
			TotalDebits:  debits,
			TotalCredits: credits,
			Difference:   debits.Sub(credits),
		}
		tb.Balanced = tb.Totals.Difference.IsZero()
		uc.flagImbalance("trial_balance", tb.Totals.Difference, map[string]any{"as_of": dateKey(date)})

		return tb, nil
	})
}

// ProfitLossTotals summarizes a profit and loss statement.
type ProfitLossTotals struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalCOGS     decimal.Decimal `json:"totalCOGS"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	GrossProfit   decimal.Decimal `json:"grossProfit"`
	NetProfit     decimal.Decimal `json:"netProfit"`
}

// ProfitLoss is revenue against expenses over a period. Expenses include COGS.
type ProfitLoss struct {
	Period   Period           `json:"period"`
	Revenue  []AccountAmount  `json:"revenue"`
	Expenses []AccountAmount  `json:"expenses"`
	Totals   ProfitLossTotals `json:"totals"`
}

// ProfitLoss reports revenue and expense activity between from and to,
// defaulting to the start of the year through today.
func (uc *ReportUseCase) ProfitLoss(ctx context.Context, from, to *time.Time) (*ProfitLoss, error) {
	r, err := uc.defaultRange(from, to)
	if err != nil {
		return nil, err
	}

	return runReport(ctx, uc, "profit_loss", []string{dateKey(r.From), dateKey(r.To)}, func(ctx context.Context, tx Transaction) (*ProfitLoss, error) {
		return uc.profitLoss(ctx, tx, r, nil)
	})
}

func (uc *ReportUseCase) profitLoss(ctx context.Context, tx Transaction, r domain.DateRange, storeID *string) (*ProfitLoss, error) {
	view, err := uc.loadView(ctx, tx, &r.From, r.To, storeID)
	if err != nil {
		return nil, err
	}
	return profitLossFromView(view, r), nil
}

func profitLossFromView(view *ledgerView, r domain.DateRange) *ProfitLoss {
	pl := &ProfitLoss{
		Period:   periodOf(r),
		Revenue:  view.amounts(domain.AccountTypeRevenue),
		Expenses: view.amounts(domain.AccountTypeExpense, domain.AccountTypeCOGS),
	}

	revenue := sumAmounts(pl.Revenue)
	cogs := view.sumTypes(domain.AccountTypeCOGS)
	expenses := sumAmounts(pl.Expenses)

	pl.Totals = ProfitLossTotals{
		TotalRevenue:  revenue,
		TotalCOGS:     cogs,
		TotalExpenses: expenses,
		GrossProfit:   revenue.Sub(cogs),
		NetProfit:     revenue.Sub(expenses),
	}
	return pl
}

// CurrentEarningsName labels the balance-sheet equity line carrying unclosed net income.
const CurrentEarningsName = "Current Earnings"

// BalanceSheetTotals summarizes a balance sheet.
type BalanceSheetTotals struct {
	TotalAssets               decimal.Decimal `json:"totalAssets"`
	TotalLiabilities          decimal.Decimal `json:"totalLiabilities"`
	TotalEquity               decimal.Decimal `json:"totalEquity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"totalLiabilitiesAndEquity"`
	CurrentEarnings           decimal.Decimal `json:"currentEarnings"`
	Difference                decimal.Decimal `json:"difference"`
}

// BalanceSheet is the position of the business as of a date.
type BalanceSheet struct {
	AsOfDate    time.Time          `json:"asOfDate"`
	Assets      []AccountAmount    `json:"assets"`
	Liabilities []AccountAmount    `json:"liabilities"`
	Equity      []AccountAmount    `json:"equity"`
	Totals      BalanceSheetTotals `json:"totals"`
	Balanced    bool               `json:"balanced"`
}

// BalanceSheet reports cumulative balances through asOf. Net income not yet
// closed to retained earnings appears as a Current Earnings equity line.
func (uc *ReportUseCase) BalanceSheet(ctx context.Context, asOf *time.Time) (*BalanceSheet, error) {
	date := uc.asOfOrToday(asOf)

	return runReport(ctx, uc, "balance_sheet", []string{dateKey(date)}, func(ctx context.Context, tx Transaction) (*BalanceSheet, error) {
		view, err := uc.loadView(ctx, tx, nil, date, nil)
		if err != nil {
			return nil, err
		}

		bs := balanceSheetFromView(view, date)
		uc.flagImbalance("balance_sheet", bs.Totals.Difference, map[string]any{"as_of": dateKey(date)})
		return bs, nil
	})
}

func balanceSheetFromView(view *ledgerView, date time.Time) *BalanceSheet {
	bs := &BalanceSheet{
		AsOfDate:    date,
		Assets:      view.amounts(domain.AccountTypeAsset),
		Liabilities: view.amounts(domain.AccountTypeLiability),
		Equity:      view.amounts(domain.AccountTypeEquity),
	}

	earnings := view.sumTypes(domain.AccountTypeRevenue).
		Sub(view.sumTypes(domain.AccountTypeExpense, domain.AccountTypeCOGS))
	if !earnings.IsZero() {
		bs.Equity = append(bs.Equity, AccountAmount{
			Name:   CurrentEarningsName,
			Type:   domain.AccountTypeEquity,
			Amount: earnings,
		})
	}

	assets := sumAmounts(bs.Assets)
	liabilities := sumAmounts(bs.Liabilities)
	equity := sumAmounts(bs.Equity)

	bs.Totals = BalanceSheetTotals{
		TotalAssets:               assets,
		TotalLiabilities:          liabilities,
		TotalEquity:               equity,
		TotalLiabilitiesAndEquity: liabilities.Add(equity),
		CurrentEarnings:           earnings,
		Difference:                assets.Sub(liabilities.Add(equity)),
	}
	bs.Balanced = bs.Totals.Difference.IsZero()
	return bs
}

// WorkingCapitalChanges are the operating adjustments for balance movements.
type WorkingCapitalChanges struct {
	AccountsReceivable decimal.Decimal `json:"accountsReceivable"`
	Inventory          decimal.Decimal `json:"inventory"`
	AccountsPayable    decimal.Decimal `json:"accountsPayable"`
	TaxPayable         decimal.Decimal `json:"taxPayable"`
}

// OperatingActivities derives operating cash from net income.
type OperatingActivities struct {
	NetIncome               decimal.Decimal       `json:"netIncome"`
	Adjustments             decimal.Decimal       `json:"adjustments"`
	ChangesInWorkingCapital WorkingCapitalChanges `json:"changesInWorkingCapital"`
}

// InvestingActivities is cash spent on or recovered from long-lived assets.
type InvestingActivities struct {
	FixedAssets decimal.Decimal `json:"fixedAssets"`
	Total       decimal.Decimal `json:"total"`
}

// FinancingActivities is cash raised from or returned to owners.
type FinancingActivities struct {
	Equity decimal.Decimal `json:"equity"`
	Total  decimal.Decimal `json:"total"`
}

// CashFlow is an indirect-method cash flow statement.
type CashFlow struct {
	Period                Period              `json:"period"`
	OperatingActivities   OperatingActivities `json:"operatingActivities"`
	NetCashFromOperations decimal.Decimal     `json:"netCashFromOperations"`
	Investing             InvestingActivities `json:"investing"`
	Financing             FinancingActivities `json:"financing"`
	NetChangeInCash       decimal.Decimal     `json:"netChangeInCash"`
	BeginningCash         decimal.Decimal     `json:"beginningCash"`
	EndingCash            decimal.Decimal     `json:"endingCash"`
	ActualChangeInCash    decimal.Decimal     `json:"actualChangeInCash"`
	Difference            decimal.Decimal     `json:"difference"`
}

// CashFlow derives cash movement between from and to by the indirect method.
func (uc *ReportUseCase) CashFlow(ctx context.Context, from, to *time.Time) (*CashFlow, error) {
	r, err := uc.defaultRange(from, to)
	if err != nil {
		return nil, err
	}

	return runReport(ctx, uc, "cash_flow", []string{dateKey(r.From), dateKey(r.To)}, func(ctx context.Context, tx Transaction) (*CashFlow, error) {
		activity, err := uc.loadView(ctx, tx, &r.From, r.To, nil)
		if err != nil {
			return nil, err
		}
		opening, err := uc.loadView(ctx, tx, nil, r.From.Add(-time.Nanosecond), nil)
		if err != nil {
			return nil, err
		}
		closing, err := uc.loadView(ctx, tx, nil, r.To, nil)
		if err != nil {
			return nil, err
		}

		return cashFlowFromViews(r, activity, opening, closing), nil
	})
}

func cashFlowFromViews(r domain.DateRange, activity, opening, closing *ledgerView) *CashFlow {
	change := func(role domain.AccountRole) decimal.Decimal {
		return closing.sumRole(role).Sub(opening.sumRole(role))
	}

	pl := profitLossFromView(activity, r)

	addBack := decimal.Zero
	for _, a := range activity.accounts {
		if a.Type != domain.AccountTypeExpense {
			continue
		}
		if role := a.EffectiveRole(); role != domain.AccountRoleDepreciation && role != domain.AccountRoleAmortization {
			continue
		}
		b := activity.balances.Get(a.ID)
		addBack = addBack.Add(a.NormalBalance(b.Debit, b.Credit))
	}

	ops := OperatingActivities{
		NetIncome:   pl.Totals.NetProfit,
		Adjustments: addBack,
		ChangesInWorkingCapital: WorkingCapitalChanges{
			AccountsReceivable: change(domain.AccountRoleReceivable).Neg(),
			Inventory:          change(domain.AccountRoleInventory).Neg(),
			AccountsPayable:    change(domain.AccountRolePayable),
			TaxPayable:         change(domain.AccountRoleTax),
		},
	}
	wc := ops.ChangesInWorkingCapital
	operating := ops.NetIncome.Add(ops.Adjustments).
		Add(wc.AccountsReceivable).Add(wc.Inventory).Add(wc.AccountsPayable).Add(wc.TaxPayable)

	fixed := change(domain.AccountRoleFixedAsset).Neg()
	investing := InvestingActivities{FixedAssets: fixed, Total: fixed}

	equityChange := decimal.Zero
	for _, a := range closing.accounts {
		if a.Type != domain.AccountTypeEquity || a.HasRole(domain.AccountRoleRetainedEarnings) {
			continue
		}
		end := closing.balances.Get(a.ID)
		start := opening.balances.Get(a.ID)
		equityChange = equityChange.Add(a.NormalBalance(end.Debit, end.Credit).Sub(a.NormalBalance(start.Debit, start.Credit)))
	}
	financing := FinancingActivities{Equity: equityChange, Total: equityChange}

	net := operating.Add(investing.Total).Add(financing.Total)
	beginning := opening.sumRole(domain.AccountRoleCash)
	ending := closing.sumRole(domain.AccountRoleCash)
	actual := ending.Sub(beginning)

	return &CashFlow{
		Period:                periodOf(r),
		OperatingActivities:   ops,
		NetCashFromOperations: operating,
		Investing:             investing,
		Financing:             financing,
		NetChangeInCash:       net,
		BeginningCash:         beginning,
		EndingCash:            ending,
		ActualChangeInCash:    actual,
		Difference:            actual.Sub(net),
	}
}
