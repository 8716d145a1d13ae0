package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// TaxSummary sets tax collected on orders beside tax booked to the ledger.
type TaxSummary struct {
	Period           Period                     `json:"period"`
	ByJurisdiction   map[string]decimal.Decimal `json:"byJurisdiction"`
	TaxFromOrders    decimal.Decimal            `json:"taxFromOrders"`
	LedgerAccounts   []AccountAmount            `json:"ledgerAccounts"`
	TaxFromLedger    decimal.Decimal            `json:"taxFromLedger"`
	Difference       decimal.Decimal            `json:"difference"`
	CombinedTotal    decimal.Decimal            `json:"combinedTotal"`
	OrdersConsidered int                        `json:"ordersConsidered"`
}

// TaxSummary totals order tax by currency and TAX-role ledger activity between from and to.
func (uc *ReportUseCase) TaxSummary(ctx context.Context, from, to *time.Time) (*TaxSummary, error) {
	r, err := uc.defaultRange(from, to)
	if err != nil {
		return nil, err
	}

	return runReport(ctx, uc, "tax_summary", []string{dateKey(r.From), dateKey(r.To)}, func(ctx context.Context, tx Transaction) (*TaxSummary, error) {
		orders, err := uc.repos.Orders.List(ctx, tx, domain.CommerceFilter{From: &r.From, To: &r.To})
		if err != nil {
			return nil, err
		}
		view, err := uc.loadView(ctx, tx, &r.From, r.To, nil)
		if err != nil {
			return nil, err
		}

		ts := &TaxSummary{
			Period:           periodOf(r),
			ByJurisdiction:   map[string]decimal.Decimal{},
			TaxFromOrders:    decimal.Zero,
			LedgerAccounts:   make([]AccountAmount, 0),
			OrdersConsidered: len(orders),
		}

		for _, o := range orders {
			key := strings.ToUpper(o.Currency) + " Tax"
			ts.ByJurisdiction[key] = ts.ByJurisdiction[key].Add(o.TotalTax)
			ts.TaxFromOrders = ts.TaxFromOrders.Add(o.TotalTax)
		}

		for _, a := range view.accounts {
			if !a.HasRole(domain.AccountRoleTax) {
				continue
			}
			b := view.balances.Get(a.ID)
			ts.LedgerAccounts = append(ts.LedgerAccounts, AccountAmount{
				AccountID: a.ID,
				Code:      a.Code,
				Name:      a.Name,
				Type:      a.Type,
				Amount:    b.Credit.Sub(b.Debit),
			})
		}
		ts.TaxFromLedger = sumAmounts(ts.LedgerAccounts)
		ts.Difference = ts.TaxFromOrders.Sub(ts.TaxFromLedger)
		ts.CombinedTotal = ts.TaxFromOrders.Add(ts.TaxFromLedger)

		return ts, nil
	})
}

// AgingTotals holds outstanding amounts per bucket.
type AgingTotals struct {
	Current    decimal.Decimal `json:"current"`
	Days31To60 decimal.Decimal `json:"31-60"`
	Days61To90 decimal.Decimal `json:"61-90"`
	Over90     decimal.Decimal `json:"90+"`
	Total      decimal.Decimal `json:"total"`
}

func (t *AgingTotals) add(bucket domain.AgingBucket, amount decimal.Decimal) {
	switch bucket {
	case domain.AgingCurrent:
		t.Current = t.Current.Add(amount)
	case domain.Aging31To60:
		t.Days31To60 = t.Days31To60.Add(amount)
	case domain.Aging61To90:
		t.Days61To90 = t.Days61To90.Add(amount)
	default:
		t.Over90 = t.Over90.Add(amount)
	}
	t.Total = t.Total.Add(amount)
}

// AgingItem is one open document placed in a bucket.
type AgingItem struct {
	DocumentID   string             `json:"documentId"`
	Number       string             `json:"number"`
	Counterparty string             `json:"counterparty"`
	Currency     string             `json:"currency"`
	DueDate      time.Time          `json:"dueDate"`
	Outstanding  decimal.Decimal    `json:"outstanding"`
	DaysOverdue  int                `json:"daysOverdue"`
	Bucket       domain.AgingBucket `json:"bucket"`
}

// CounterpartyAging is the bucket split for one customer or vendor.
type CounterpartyAging struct {
	Counterparty string      `json:"counterparty"`
	Totals       AgingTotals `json:"totals"`
}

// AgingReport buckets open receivables or payables by days overdue.
type AgingReport struct {
	Kind           domain.DocumentKind `json:"kind"`
	AsOfDate       time.Time           `json:"asOfDate"`
	Items          []AgingItem         `json:"items"`
	Summary        AgingTotals         `json:"summary"`
	ByCounterparty []CounterpartyAging `json:"byCounterparty"`
}

// ARAging buckets open invoices as of asOf, defaulting to now.
func (uc *ReportUseCase) ARAging(ctx context.Context, asOf *time.Time) (*AgingReport, error) {
	return uc.aging(ctx, domain.DocumentKindInvoice, asOf)
}

// APAging buckets open bills as of asOf, defaulting to now.
func (uc *ReportUseCase) APAging(ctx context.Context, asOf *time.Time) (*AgingReport, error) {
	return uc.aging(ctx, domain.DocumentKindBill, asOf)
}

func (uc *ReportUseCase) aging(ctx context.Context, kind domain.DocumentKind, asOf *time.Time) (*AgingReport, error) {
	date := uc.now()
	if asOf != nil {
		date = *asOf
	}

	name := "ar_aging"
	if kind == domain.DocumentKindBill {
		name = "ap_aging"
	}

	return runReport(ctx, uc, name, []string{dateKey(date)}, func(ctx context.Context, tx Transaction) (*AgingReport, error) {
		docs, err := uc.repos.Documents.List(ctx, tx, domain.DocumentFilter{Kind: kind, OpenOnly: true})
		if err != nil {
			return nil, err
		}
		return buildAging(kind, date, docs), nil
	})
}

func buildAging(kind domain.DocumentKind, asOf time.Time, docs []*domain.Document) *AgingReport {
	report := &AgingReport{Kind: kind, AsOfDate: asOf, Items: make([]AgingItem, 0, len(docs))}
	byCounterparty := map[string]*AgingTotals{}
	var order []string

	for _, d := range docs {
		if !d.IsOpen() {
			continue
		}
		days := domain.DaysOverdue(d.DueDate, asOf)
		bucket := domain.BucketFor(days)
		outstanding := d.Outstanding()

		report.Items = append(report.Items, AgingItem{
			DocumentID:   d.ID,
			Number:       d.Number,
			Counterparty: d.Counterparty,
			Currency:     d.Currency,
			DueDate:      d.DueDate,
			Outstanding:  outstanding,
			DaysOverdue:  days,
			Bucket:       bucket,
		})
		report.Summary.add(bucket, outstanding)

		totals, ok := byCounterparty[d.Counterparty]
		if !ok {
			totals = &AgingTotals{}
			byCounterparty[d.Counterparty] = totals
			order = append(order, d.Counterparty)
		}
		totals.add(bucket, outstanding)
	}

	sort.Strings(order)
	report.ByCounterparty = make([]CounterpartyAging, 0, len(order))
	for _, name := range order {
		report.ByCounterparty = append(report.ByCounterparty, CounterpartyAging{Counterparty: name, Totals: *byCounterparty[name]})
	}

	return report
}

// Budget statuses.
const (
	BudgetStatusOver     = "OVER"
	BudgetStatusUnder    = "UNDER"
	BudgetStatusOnTarget = "ON_TARGET"
)

// BudgetLine compares one account's budget with its actual activity.
type BudgetLine struct {
	AccountID       string             `json:"accountId"`
	Code            string             `json:"code"`
	Name            string             `json:"name"`
	Type            domain.AccountType `json:"type"`
	Budget          decimal.Decimal    `json:"budget"`
	Actual          decimal.Decimal    `json:"actual"`
	Variance        decimal.Decimal    `json:"variance"`
	VariancePercent decimal.Decimal    `json:"variancePercent"`
	Status          string             `json:"status"`
}

// BudgetTotals sums every budget line.
type BudgetTotals struct {
	Budget          decimal.Decimal `json:"budget"`
	Actual          decimal.Decimal `json:"actual"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variancePercent"`
}

// BudgetVariance compares budgets with posted activity for a fiscal period.
type BudgetVariance struct {
	FiscalYear int          `json:"fiscalYear"`
	Month      int          `json:"month"`
	Period     Period       `json:"period"`
	Lines      []BudgetLine `json:"lines"`
	Totals     BudgetTotals `json:"totals"`
}

// BudgetVariance compares each budgeted account's normal-signed activity with
// its budget. Month 0 covers the whole year: an annual budget row is used when
// present, otherwise the monthly rows are summed.
func (uc *ReportUseCase) BudgetVariance(ctx context.Context, fiscalYear, month int) (*BudgetVariance, error) {
	verr := &domain.ValidationError{}
	if fiscalYear < 1900 || fiscalYear > 9999 {
		verr.Add("fiscalYear", "must be a four-digit year")
	}
	if month < 0 || month > 12 {
		verr.Add("month", "must be between 0 and 12")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	r := domain.MonthRange(fiscalYear, month)
	params := []string{strconv.Itoa(fiscalYear), strconv.Itoa(month)}

	return runReport(ctx, uc, "budget_variance", params, func(ctx context.Context, tx Transaction) (*BudgetVariance, error) {
		budgets, err := uc.repos.Budgets.List(ctx, tx, fiscalYear, month)
		if err != nil {
			return nil, err
		}
		view, err := uc.loadView(ctx, tx, &r.From, r.To, nil)
		if err != nil {
			return nil, err
		}
		return buildBudgetVariance(fiscalYear, month, r, budgets, view), nil
	})
}

func buildBudgetVariance(fiscalYear, month int, r domain.DateRange, budgets []*domain.Budget, view *ledgerView) *BudgetVariance {
	annual := map[string]decimal.Decimal{}
	monthly := map[string]decimal.Decimal{}
	for _, b := range budgets {
		if b.Month == 0 {
			annual[b.AccountID] = annual[b.AccountID].Add(b.Amount)
		} else if month == 0 || b.Month == month {
			monthly[b.AccountID] = monthly[b.AccountID].Add(b.Amount)
		}
	}

	planned := map[string]decimal.Decimal{}
	if month == 0 {
		for id, amount := range monthly {
			planned[id] = amount
		}
		for id, amount := range annual {
			planned[id] = amount
		}
	} else {
		planned = monthly
	}

	report := &BudgetVariance{FiscalYear: fiscalYear, Month: month, Period: periodOf(r), Lines: make([]BudgetLine, 0, len(planned))}
	totals := BudgetTotals{}

	for _, a := range view.accounts {
		budget, ok := planned[a.ID]
		if !ok {
			continue
		}
		b := view.balances.Get(a.ID)
		actual := a.NormalBalance(b.Debit, b.Credit)
		variance := actual.Sub(budget)

		report.Lines = append(report.Lines, BudgetLine{
			AccountID:       a.ID,
			Code:            a.Code,
			Name:            a.Name,
			Type:            a.Type,
			Budget:          budget,
			Actual:          actual,
			Variance:        variance,
			VariancePercent: percentOf(variance, budget),
			Status:          budgetStatus(variance),
		})
		totals.Budget = totals.Budget.Add(budget)
		totals.Actual = totals.Actual.Add(actual)
	}

	totals.Variance = totals.Actual.Sub(totals.Budget)
	totals.VariancePercent = percentOf(totals.Variance, totals.Budget)
	report.Totals = totals

	return report
}

func budgetStatus(variance decimal.Decimal) string {
	switch variance.Sign() {
	case 1:
		return BudgetStatusOver
	case -1:
		return BudgetStatusUnder
	default:
		return BudgetStatusOnTarget
	}
}

// FXItem is one foreign-currency document restated at the current rate.
type FXItem struct {
	DocumentID     string              `json:"documentId"`
	Kind           domain.DocumentKind `json:"kind"`
	Number         string              `json:"number"`
	Counterparty   string              `json:"counterparty"`
	Currency       string              `json:"currency"`
	Outstanding    decimal.Decimal     `json:"outstanding"`
	BookedRate     decimal.Decimal     `json:"bookedRate"`
	CurrentRate    decimal.Decimal     `json:"currentRate"`
	RateMissing    bool                `json:"rateMissing"`
	OriginalValue  decimal.Decimal     `json:"originalValue"`
	RevaluedValue  decimal.Decimal     `json:"revaluedValue"`
	UnrealizedGain decimal.Decimal     `json:"unrealizedGain"`
}

// FXSummary nets unrealized gains against unrealized losses.
type FXSummary struct {
	TotalUnrealizedGain decimal.Decimal `json:"totalUnrealizedGain"`
	TotalUnrealizedLoss decimal.Decimal `json:"totalUnrealizedLoss"`
	NetUnrealizedGain   decimal.Decimal `json:"netUnrealizedGain"`
}

// FXRevaluation restates open foreign-currency documents in a reporting currency.
type FXRevaluation struct {
	AsOfDate    time.Time `json:"asOfDate"`
	Currency    string    `json:"currency"`
	Receivables []FXItem  `json:"receivables"`
	Payables    []FXItem  `json:"payables"`
	Summary     FXSummary `json:"summary"`
}

// FXRevaluation compares each open document's booked value with its value at
// the latest rate on or before asOf. A missing rate falls back to 1 and is flagged.
func (uc *ReportUseCase) FXRevaluation(ctx context.Context, currency string, asOf *time.Time) (*FXRevaluation, error) {
	target := strings.ToUpper(strings.TrimSpace(currency))
	if target == "" {
		target = DefaultReportCurrency
	}
	if err := domain.ValidateCurrency(target); err != nil {
		return nil, err
	}
	date := uc.asOfOrToday(asOf)

	return runReport(ctx, uc, "fx_revaluation", []string{target, dateKey(date)}, func(ctx context.Context, tx Transaction) (*FXRevaluation, error) {
		docs, err := uc.repos.Documents.List(ctx, tx, domain.DocumentFilter{OpenOnly: true})
		if err != nil {
			return nil, err
		}

		report := &FXRevaluation{
			AsOfDate:    date,
			Currency:    target,
			Receivables: make([]FXItem, 0),
			Payables:    make([]FXItem, 0),
		}
		rates := map[string]*domain.ExchangeRate{}

		for _, d := range docs {
			from := strings.ToUpper(d.Currency)
			if from == target || !d.IsOpen() {
				continue
			}

			rate, seen := rates[from]
			if !seen {
				rate, err = uc.repos.Rates.Latest(ctx, tx, from, target, date)
				if err != nil {
					return nil, err
				}
				rates[from] = rate
			}

			item := revalue(d, rate)
			if item.UnrealizedGain.IsPositive() {
				report.Summary.TotalUnrealizedGain = report.Summary.TotalUnrealizedGain.Add(item.UnrealizedGain)
			} else {
				report.Summary.TotalUnrealizedLoss = report.Summary.TotalUnrealizedLoss.Add(item.UnrealizedGain.Neg())
			}

			if d.Kind == domain.DocumentKindBill {
				report.Payables = append(report.Payables, item)
			} else {
				report.Receivables = append(report.Receivables, item)
			}
		}

		report.Summary.NetUnrealizedGain = report.Summary.TotalUnrealizedGain.Sub(report.Summary.TotalUnrealizedLoss)
		return report, nil
	})
}

func revalue(d *domain.Document, rate *domain.ExchangeRate) FXItem {
	current := decimal.NewFromInt(1)
	missing := rate == nil
	if !missing {
		current = rate.Rate
	}
	booked := d.BookedRate
	if !booked.IsPositive() {
		booked = decimal.NewFromInt(1)
	}

	outstanding := d.Outstanding()
	original := outstanding.Mul(booked).Round(2)
	revalued := outstanding.Mul(current).Round(2)

	gain := revalued.Sub(original)
	if d.Kind == domain.DocumentKindBill {
		gain = original.Sub(revalued)
	}

	return FXItem{
		DocumentID:     d.ID,
		Kind:           d.Kind,
		Number:         d.Number,
		Counterparty:   d.Counterparty,
		Currency:       d.Currency,
		Outstanding:    outstanding,
		BookedRate:     booked,
		CurrentRate:    current,
		RateMissing:    missing,
		OriginalValue:  original,
		RevaluedValue:  revalued,
		UnrealizedGain: gain,
	}
}

// ConsolidatedSection is one store's activity, or the unassigned remainder.
type ConsolidatedSection struct {
	StoreID     *string         `json:"storeId"`
	StoreName   string          `json:"storeName"`
	Revenue     decimal.Decimal `json:"revenue"`
	Expenses    decimal.Decimal `json:"expenses"`
	NetIncome   decimal.Decimal `json:"netIncome"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
}

// UnassignedSectionName labels activity not tagged with a store.
const UnassignedSectionName = "Unassigned"

// ConsolidatedReport splits period activity by store and sums it back up.
type ConsolidatedReport struct {
	Period       Period                `json:"period"`
	Stores       []ConsolidatedSection `json:"stores"`
	Unassigned   ConsolidatedSection   `json:"unassigned"`
	Consolidated ConsolidatedSection   `json:"consolidated"`
	ActiveStores int                   `json:"activeStores"`
}

// Consolidated reports activity between from and to per store. Untagged
// activity lands in the unassigned section, so the sections always sum to
// the consolidated totals.
func (uc *ReportUseCase) Consolidated(ctx context.Context, from, to *time.Time) (*ConsolidatedReport, error) {
	r, err := uc.defaultRange(from, to)
	if err != nil {
		return nil, err
	}

	return runReport(ctx, uc, "consolidated", []string{dateKey(r.From), dateKey(r.To)}, func(ctx context.Context, tx Transaction) (*ConsolidatedReport, error) {
		stores, err := uc.repos.Stores.List(ctx, tx)
		if err != nil {
			return nil, err
		}

		all, err := uc.loadView(ctx, tx, &r.From, r.To, nil)
		if err != nil {
			return nil, err
		}

		report := &ConsolidatedReport{
			Period:       periodOf(r),
			Stores:       make([]ConsolidatedSection, 0, len(stores)),
			Consolidated: sectionFromView(all, nil, "Consolidated"),
		}

		remainder := report.Consolidated
		for _, s := range stores {
			if s.IsActive {
				report.ActiveStores++
			}
			storeID := s.ID
			view, err := uc.loadView(ctx, tx, &r.From, r.To, &storeID)
			if err != nil {
				return nil, err
			}
			section := sectionFromView(view, &storeID, s.Name)
			report.Stores = append(report.Stores, section)
			remainder = subtractSection(remainder, section)
		}

		remainder.StoreID = nil
		remainder.StoreName = UnassignedSectionName
		report.Unassigned = remainder

		return report, nil
	})
}

func sectionFromView(view *ledgerView, storeID *string, name string) ConsolidatedSection {
	revenue := view.sumTypes(domain.AccountTypeRevenue)
	expenses := view.sumTypes(domain.AccountTypeExpense, domain.AccountTypeCOGS)
	net := revenue.Sub(expenses)
	return ConsolidatedSection{
		StoreID:     storeID,
		StoreName:   name,
		Revenue:     revenue,
		Expenses:    expenses,
		NetIncome:   net,
		Assets:      view.sumTypes(domain.AccountTypeAsset),
		Liabilities: view.sumTypes(domain.AccountTypeLiability),
		Equity:      view.sumTypes(domain.AccountTypeEquity).Add(net),
	}
}

func subtractSection(a, b ConsolidatedSection) ConsolidatedSection {
	return ConsolidatedSection{
		StoreID:     a.StoreID,
		StoreName:   a.StoreName,
		Revenue:     a.Revenue.Sub(b.Revenue),
		Expenses:    a.Expenses.Sub(b.Expenses),
		NetIncome:   a.NetIncome.Sub(b.NetIncome),
		Assets:      a.Assets.Sub(b.Assets),
		Liabilities: a.Liabilities.Sub(b.Liabilities),
		Equity:      a.Equity.Sub(b.Equity),
	}
}
