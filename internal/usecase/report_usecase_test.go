package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

var (
	juneStart = day(2024, time.June, 1)
	juneEnd   = day(2024, time.June, 30)
)

func recordSimpleSale(t *testing.T, env *ledgerEnv) {
	t.Helper()
	_, err := env.posting.RecordOrderPaid(context.Background(), paidOrder("5001", "110.00", "10.00", day(2024, time.June, 15)))
	require.NoError(t, err)
}

func postManual(t *testing.T, env *ledgerEnv, debitCode, creditCode, amount string, date time.Time) {
	t.Helper()
	_, err := env.journal.CreateJournalEntry(context.Background(), usecase.CreateJournalEntryInput{
		Description: "Manual entry",
		Date:        date,
		Lines: []domain.JournalLine{
			{AccountID: env.account(t, debitCode).ID, Debit: dec(amount)},
			{AccountID: env.account(t, creditCode).ID, Credit: dec(amount)},
		},
		PostImmediately: true,
	})
	require.NoError(t, err)
}

func TestReportUseCase_SimpleSaleStatements(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()
	recordSimpleSale(t, env)

	tb, err := env.reports.TrialBalance(ctx, &juneEnd)
	require.NoError(t, err)
	require.True(t, tb.Balanced)
	requireDecimal(t, "110", tb.Totals.TotalDebits)
	requireDecimal(t, "110", tb.Totals.TotalCredits)
	require.Len(t, tb.Accounts, len(domain.DefaultChart))

	pl, err := env.reports.ProfitLoss(ctx, &juneStart, &juneEnd)
	require.NoError(t, err)
	requireDecimal(t, "100", pl.Totals.TotalRevenue)
	requireDecimal(t, "0", pl.Totals.TotalExpenses)
	requireDecimal(t, "100", pl.Totals.NetProfit)

	bs, err := env.reports.BalanceSheet(ctx, &juneEnd)
	require.NoError(t, err)
	require.True(t, bs.Balanced)
	requireDecimal(t, "110", bs.Totals.TotalAssets)
	requireDecimal(t, "10", bs.Totals.TotalLiabilities)
	requireDecimal(t, "100", bs.Totals.TotalEquity)
	requireDecimal(t, "100", bs.Totals.CurrentEarnings)
	require.Equal(t, usecase.CurrentEarningsName, bs.Equity[len(bs.Equity)-1].Name)

	cf, err := env.reports.CashFlow(ctx, &juneStart, &juneEnd)
	require.NoError(t, err)
	requireDecimal(t, "100", cf.OperatingActivities.NetIncome)
	requireDecimal(t, "10", cf.OperatingActivities.ChangesInWorkingCapital.TaxPayable)
	requireDecimal(t, "110", cf.NetCashFromOperations)
	requireDecimal(t, "0", cf.BeginningCash)
	requireDecimal(t, "110", cf.EndingCash)
	requireDecimal(t, "0", cf.Difference)

	tax, err := env.reports.TaxSummary(ctx, &juneStart, &juneEnd)
	require.NoError(t, err)
	requireDecimal(t, "10", tax.TaxFromOrders)
	requireDecimal(t, "10", tax.TaxFromLedger)
	requireDecimal(t, "0", tax.Difference)
	requireDecimal(t, "10", tax.ByJurisdiction["USD Tax"])
}

func TestReportUseCase_BalanceSheetBeforeActivityIsEmpty(t *testing.T) {
	env := newLedgerEnv(t)
	recordSimpleSale(t, env)

	before := day(2024, time.May, 31)
	bs, err := env.reports.BalanceSheet(context.Background(), &before)
	require.NoError(t, err)
	require.True(t, bs.Balanced)
	require.Empty(t, bs.Assets)
	requireDecimal(t, "0", bs.Totals.TotalAssets)
}

func TestReportUseCase_UncommittedEntryStaysOutOfReports(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()
	cash := env.account(t, domain.CodeCash)
	sales := env.account(t, domain.CodeSales)

	tx, err := env.txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, env.repos.Journal.Create(ctx, tx, &domain.JournalEntry{
		ID:          "pending",
		Reference:   "JE-PENDING",
		Description: "not yet committed",
		Date:        day(2024, time.June, 10),
		TotalDebit:  dec("100"),
		TotalCredit: dec("100"),
		IsPosted:    true,
		CreatedBy:   "test",
		Lines: []domain.JournalLine{
			{ID: "pending-1", AccountID: cash.ID, LineNo: 1, Debit: dec("100")},
			{ID: "pending-2", AccountID: sales.ID, LineNo: 2, Credit: dec("100")},
		},
	}))

	tb, err := env.reports.TrialBalance(ctx, &juneEnd)
	require.NoError(t, err)
	requireDecimal(t, "0", tb.Totals.TotalDebits)

	require.NoError(t, tx.Rollback(ctx))

	tb, err = env.reports.TrialBalance(ctx, &juneEnd)
	require.NoError(t, err)
	requireDecimal(t, "0", tb.Totals.TotalDebits)
	require.True(t, tb.Balanced)
}

func TestReportUseCase_CashFlowAddsBackDepreciation(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	postManual(t, env, domain.CodeCash, "3000", "1000", day(2024, time.June, 1))
	postManual(t, env, "1400", domain.CodeCash, "600", day(2024, time.June, 2))
	postManual(t, env, "5600", "1500", "50", day(2024, time.June, 30))

	cf, err := env.reports.CashFlow(ctx, &juneStart, &juneEnd)
	require.NoError(t, err)
	requireDecimal(t, "-50", cf.OperatingActivities.NetIncome)
	requireDecimal(t, "50", cf.OperatingActivities.Adjustments)
	requireDecimal(t, "-600", cf.Investing.Total)
	requireDecimal(t, "1000", cf.Financing.Total)
	requireDecimal(t, "400", cf.NetChangeInCash)
	requireDecimal(t, "0", cf.BeginningCash)
	requireDecimal(t, "400", cf.EndingCash)
	requireDecimal(t, "0", cf.Difference)
}

func TestReportUseCase_InvertedRangeIsRejected(t *testing.T) {
	env := newLedgerEnv(t)
	_, err := env.reports.ProfitLoss(context.Background(), &juneEnd, &juneStart)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReportUseCase_Aging(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()
	asOf := day(2024, time.June, 30)

	_, err := env.reference.CreateDocument(ctx, usecase.CreateDocumentInput{
		Kind:         domain.DocumentKindInvoice,
		Number:       "INV-1",
		Counterparty: "Acme",
		Total:        dec("500"),
		DueDate:      asOf.AddDate(0, 0, -40),
	})
	require.NoError(t, err)
	_, err = env.reference.CreateDocument(ctx, usecase.CreateDocumentInput{
		Kind:         domain.DocumentKindInvoice,
		Number:       "INV-2",
		Counterparty: "Acme",
		Total:        dec("300"),
		Paid:         dec("100"),
		DueDate:      asOf.AddDate(0, 0, 5),
	})
	require.NoError(t, err)
	_, err = env.reference.CreateDocument(ctx, usecase.CreateDocumentInput{
		Kind:         domain.DocumentKindInvoice,
		Number:       "INV-3",
		Counterparty: "Paid Up Ltd",
		Total:        dec("50"),
		Paid:         dec("50"),
		DueDate:      asOf.AddDate(0, 0, -100),
	})
	require.NoError(t, err)
	_, err = env.reference.CreateDocument(ctx, usecase.CreateDocumentInput{
		Kind:         domain.DocumentKindBill,
		Number:       "BILL-1",
		Counterparty: "Supplier",
		Total:        dec("70"),
		DueDate:      asOf.AddDate(0, 0, -95),
	})
	require.NoError(t, err)

	ar, err := env.reports.ARAging(ctx, &asOf)
	require.NoError(t, err)
	require.Len(t, ar.Items, 2)
	requireDecimal(t, "500", ar.Summary.Days31To60)
	requireDecimal(t, "200", ar.Summary.Current)
	requireDecimal(t, "700", ar.Summary.Total)
	require.Len(t, ar.ByCounterparty, 1)

	ap, err := env.reports.APAging(ctx, &asOf)
	require.NoError(t, err)
	requireDecimal(t, "70", ap.Summary.Over90)
}

func TestReportUseCase_FXRevaluation(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()
	asOf := day(2024, time.June, 30)

	for _, kind := range []domain.DocumentKind{domain.DocumentKindInvoice, domain.DocumentKindBill} {
		_, err := env.reference.CreateDocument(ctx, usecase.CreateDocumentInput{
			Kind:         kind,
			Number:       string(kind) + "-EUR",
			Counterparty: "Euro GmbH",
			Currency:     "EUR",
			Total:        dec("100"),
			BookedRate:   dec("1.10"),
			DueDate:      asOf,
		})
		require.NoError(t, err)
	}
	_, err := env.reference.CreateDocument(ctx, usecase.CreateDocumentInput{
		Kind:         domain.DocumentKindInvoice,
		Number:       "INV-GBP",
		Counterparty: "London Ltd",
		Currency:     "GBP",
		Total:        dec("10"),
		BookedRate:   dec("1.30"),
		DueDate:      asOf,
	})
	require.NoError(t, err)
	_, err = env.reference.CreateExchangeRate(ctx, usecase.CreateExchangeRateInput{From: "EUR", To: "USD", Rate: dec("1.20"), EffectiveDate: day(2024, time.June, 1)})
	require.NoError(t, err)

	fx, err := env.reports.FXRevaluation(ctx, "usd", &asOf)
	require.NoError(t, err)
	require.Equal(t, "USD", fx.Currency)

	receivables := map[string]usecase.FXItem{}
	for _, it := range fx.Receivables {
		receivables[it.Currency] = it
	}
	requireDecimal(t, "10", receivables["EUR"].UnrealizedGain)
	require.True(t, receivables["GBP"].RateMissing)
	requireDecimal(t, "-3", receivables["GBP"].UnrealizedGain)

	require.Len(t, fx.Payables, 1)
	requireDecimal(t, "-10", fx.Payables[0].UnrealizedGain)

	requireDecimal(t, "10", fx.Summary.TotalUnrealizedGain)
	requireDecimal(t, "13", fx.Summary.TotalUnrealizedLoss)
	requireDecimal(t, "-3", fx.Summary.NetUnrealizedGain)
}

func TestReportUseCase_BudgetVariance(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()
	marketing := env.account(t, "5400")
	shipping := env.account(t, "5300")

	postManual(t, env, "5400", domain.CodeCash, "150", day(2024, time.June, 10))
	postManual(t, env, "5300", domain.CodeCash, "40", day(2024, time.June, 10))

	for _, in := range []usecase.SetBudgetInput{
		{AccountID: marketing.ID, FiscalYear: 2024, Month: 6, Amount: dec("100")},
		{AccountID: shipping.ID, FiscalYear: 2024, Month: 6, Amount: dec("40")},
		{AccountID: marketing.ID, FiscalYear: 2024, Month: 5, Amount: dec("80")},
		{AccountID: marketing.ID, FiscalYear: 2024, Month: 0, Amount: dec("1200")},
	} {
		_, err := env.reference.SetBudget(ctx, in)
		require.NoError(t, err)
	}

	june, err := env.reports.BudgetVariance(ctx, 2024, 6)
	require.NoError(t, err)
	lines := map[string]usecase.BudgetLine{}
	for _, l := range june.Lines {
		lines[l.Code] = l
	}
	require.Equal(t, usecase.BudgetStatusOver, lines["5400"].Status)
	requireDecimal(t, "50", lines["5400"].Variance)
	requireDecimal(t, "50", lines["5400"].VariancePercent)
	require.Equal(t, usecase.BudgetStatusOnTarget, lines["5300"].Status)

	year, err := env.reports.BudgetVariance(ctx, 2024, 0)
	require.NoError(t, err)
	for _, l := range year.Lines {
		if l.Code == "5400" {
			requireDecimal(t, "1200", l.Budget)
			require.Equal(t, usecase.BudgetStatusUnder, l.Status)
		}
	}

	_, err = env.reports.BudgetVariance(ctx, 2024, 13)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReportUseCase_Consolidated(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	store, err := env.reference.UpsertStore(ctx, usecase.UpsertStoreInput{Domain: "shop.example.com", Name: "Main Shop", IsActive: true})
	require.NoError(t, err)

	tagged := paidOrder("7001", "60", "0", day(2024, time.June, 10))
	tagged.StoreID = &store.ID
	_, err = env.posting.RecordOrderPaid(ctx, tagged)
	require.NoError(t, err)
	_, err = env.posting.RecordOrderPaid(ctx, paidOrder("7002", "40", "0", day(2024, time.June, 11)))
	require.NoError(t, err)

	report, err := env.reports.Consolidated(ctx, &juneStart, &juneEnd)
	require.NoError(t, err)
	require.Equal(t, 1, report.ActiveStores)
	require.Len(t, report.Stores, 1)
	requireDecimal(t, "60", report.Stores[0].Revenue)
	requireDecimal(t, "40", report.Unassigned.Revenue)
	requireDecimal(t, "100", report.Consolidated.Revenue)
	require.Equal(t, usecase.UnassignedSectionName, report.Unassigned.StoreName)
}

func TestReportUseCase_BreakdownAndTrend(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	postManual(t, env, "5400", domain.CodeCash, "75", day(2024, time.June, 10))
	postManual(t, env, "5300", domain.CodeCash, "25", day(2024, time.June, 10))

	expenses, err := env.reports.ExpenseBreakdown(ctx, &juneStart, &juneEnd, 1)
	require.NoError(t, err)
	requireDecimal(t, "100", expenses.Total)
	require.Len(t, expenses.Top, 1)
	require.Len(t, expenses.Breakdown, 2)
	require.Equal(t, "5400", expenses.Top[0].Code)
	requireDecimal(t, "75", expenses.Top[0].Percentage)

	_, err = env.posting.RecordOrderPaid(ctx, paidOrder("8001", "30", "0", day(2024, time.June, 3)))
	require.NoError(t, err)
	_, err = env.posting.RecordOrderPaid(ctx, paidOrder("8002", "50", "0", day(2024, time.June, 20)))
	require.NoError(t, err)

	trend, err := env.reports.SalesTrend(ctx, &juneStart, &juneEnd, usecase.GroupByMonth)
	require.NoError(t, err)
	require.Len(t, trend.Trends, 1)
	require.Equal(t, 2, trend.Trends[0].Orders)
	requireDecimal(t, "80", trend.Trends[0].Revenue)

	daily, err := env.reports.SalesTrend(ctx, &juneStart, &juneEnd, usecase.GroupByDay)
	require.NoError(t, err)
	require.Len(t, daily.Trends, 2)

	_, err = env.reports.SalesTrend(ctx, &juneStart, &juneEnd, "fortnight")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReportUseCase_InventoryAndFixedAssets(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()

	item, err := env.reference.CreateInventoryItem(ctx, usecase.CreateInventoryItemInput{SKU: "MUG-1", Name: "Mug", Category: "Kitchen"})
	require.NoError(t, err)
	for _, m := range []domain.StockMovement{
		{Type: domain.MovementIn, Quantity: 10, UnitCost: dec("2"), Date: day(2024, time.June, 1)},
		{Type: domain.MovementIn, Quantity: 10, UnitCost: dec("3"), Date: day(2024, time.June, 2)},
		{Type: domain.MovementOut, Quantity: 15, Date: day(2024, time.June, 3)},
	} {
		require.NoError(t, env.reference.RecordStockMovement(ctx, item.ID, m))
	}

	inventory, err := env.reports.InventoryValuation(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5, inventory.Summary.TotalQuantity)
	requireDecimal(t, "15", inventory.Summary.TotalValue)
	requireDecimal(t, "15", inventory.Summary.ByCategory["Kitchen"])

	_, err = env.reference.CreateFixedAsset(ctx, usecase.CreateFixedAssetInput{
		Number:           "FA-1",
		Name:             "Laptop",
		PurchaseDate:     day(2024, time.January, 1),
		Cost:             dec("1200"),
		UsefulLifeMonths: 12,
	})
	require.NoError(t, err)

	register, err := env.reports.FixedAssetRegister(ctx, &juneEnd)
	require.NoError(t, err)
	require.Len(t, register.Assets, 1)
	require.Equal(t, 5, register.Assets[0].MonthsInService)
	requireDecimal(t, "500", register.Summary.TotalDepreciation)
	requireDecimal(t, "700", register.Summary.TotalBookValue)
	require.Equal(t, domain.AssetStatusActive, register.Assets[0].Status)
}

func TestReportUseCase_AuditTrail(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := domain.WithActor(context.Background(), "alice")
	recordSimpleSale(t, env)

	_, err := env.accounts.CreateAccount(ctx, usecase.CreateAccountInput{Code: "6000", Name: "Rent", Type: domain.AccountTypeExpense})
	require.NoError(t, err)

	trail, err := env.reports.AuditTrail(ctx, usecase.AuditTrailInput{UserID: "alice"})
	require.NoError(t, err)
	require.Equal(t, 1, trail.Summary.TotalEntries)
	require.Equal(t, 1, trail.Summary.ByAction[string(domain.AuditActionAccountCreate)])

	all, err := env.reports.AuditTrail(ctx, usecase.AuditTrailInput{ResourceType: domain.ResourceTypeJournalEntry})
	require.NoError(t, err)
	require.Equal(t, 1, all.Summary.TotalEntries)
}

func TestReportUseCase_KPISummary(t *testing.T) {
	env := newLedgerEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	empty, err := env.reports.KPISummary(ctx, "quarter")
	require.NoError(t, err)
	require.Equal(t, usecase.KPIPeriodMonth, empty.Period.Label)
	requireDecimal(t, "0", empty.Margins.Gross)
	requireDecimal(t, "0", empty.Margins.Net)
	require.Empty(t, empty.TopCustomers)

	_, err = env.posting.RecordOrderPaid(ctx, paidOrder("7001", "110.00", "10.00", now.AddDate(0, 0, -2)))
	require.NoError(t, err)
	_, err = env.posting.RecordOrderPaid(ctx, paidOrder("7002", "55.00", "5.00", now.AddDate(0, 0, -2)))
	require.NoError(t, err)
	_, err = env.posting.RecordRefund(ctx, usecase.RefundInput{
		ExternalID: "rf-7001",
		OrderID:    "ext-7001",
		Amount:     dec("11"),
		Currency:   "USD",
		CreatedAt:  now.AddDate(0, 0, -1),
	})
	require.NoError(t, err)

	kpi, err := env.reports.KPISummary(ctx, usecase.KPIPeriodWeek)
	require.NoError(t, err)
	require.Equal(t, usecase.KPIPeriodWeek, kpi.Period.Label)
	requireDecimal(t, "139", kpi.Revenue.Total)
	requireDecimal(t, "139", kpi.Revenue.Net)
	requireDecimal(t, "100", kpi.Margins.Gross)
	require.Equal(t, 2, kpi.Orders.Count)
	requireDecimal(t, "165", kpi.Orders.Value)
	requireDecimal(t, "82.5", kpi.Orders.Average)
	require.Equal(t, 1, kpi.Refunds.Count)
	requireDecimal(t, "6.67", kpi.Refunds.RefundRate)
	require.Len(t, kpi.TopCustomers, 1)
	require.Equal(t, "buyer@example.com", kpi.TopCustomers[0].Customer)
	require.Equal(t, 2, kpi.TopCustomers[0].Orders)
}
