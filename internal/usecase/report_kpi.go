package usecase

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// KPI periods.
const (
	KPIPeriodToday = "today"
	KPIPeriodWeek  = "week"
	KPIPeriodMonth = "month"
	KPIPeriodYear  = "year"
)

// Sales trend groupings.
const (
	GroupByDay   = "day"
	GroupByWeek  = "week"
	GroupByMonth = "month"
)

// KPIPeriod is the window a KPI summary covers.
type KPIPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// KPIRevenue holds revenue and profit figures.
type KPIRevenue struct {
	Total decimal.Decimal `json:"total"`
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
}

// KPIMargins holds margins as percentages of revenue.
type KPIMargins struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
}

// KPIExpenses splits expenses into COGS and platform fees.
type KPIExpenses struct {
	Total decimal.Decimal `json:"total"`
	COGS  decimal.Decimal `json:"cogs"`
	Fees  decimal.Decimal `json:"fees"`
}

// KPIOrders summarizes order volume.
type KPIOrders struct {
	Count   int             `json:"count"`
	Value   decimal.Decimal `json:"value"`
	Average decimal.Decimal `json:"average"`
}

// KPIRefunds summarizes refunds against order value.
type KPIRefunds struct {
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	RefundRate decimal.Decimal `json:"refundRate"`
}

// TopCustomer is a customer ranked by order value.
type TopCustomer struct {
	Customer string          `json:"customer"`
	Orders   int             `json:"orders"`
	Value    decimal.Decimal `json:"value"`
}

// KPISummary is the headline numbers for a period.
type KPISummary struct {
	Period       KPIPeriod     `json:"period"`
	Revenue      KPIRevenue    `json:"revenue"`
	Margins      KPIMargins    `json:"margins"`
	Expenses     KPIExpenses   `json:"expenses"`
	Orders       KPIOrders     `json:"orders"`
	Refunds      KPIRefunds    `json:"refunds"`
	TopCustomers []TopCustomer `json:"topCustomers"`
}

// kpiWindow resolves a period label to a window ending now. Unknown labels mean month.
func kpiWindow(period string, now time.Time) (string, domain.DateRange) {
	var start time.Time
	switch period {
	case KPIPeriodToday:
		start = domain.StartOfDay(now)
	case KPIPeriodWeek:
		start = now.AddDate(0, 0, -7)
	case KPIPeriodYear:
		start = now.AddDate(-1, 0, 0)
	default:
		period = KPIPeriodMonth
		start = now.AddDate(0, -1, 0)
	}
	return period, domain.DateRange{From: start, To: now}
}

// KPISummary computes revenue, margins, order and refund figures for a
// trailing period: today, week, month (the default) or year.
func (uc *ReportUseCase) KPISummary(ctx context.Context, period string) (*KPISummary, error) {
	label, r := kpiWindow(period, uc.now())

	return runReport(ctx, uc, "kpi", []string{label, dateKey(r.To)}, func(ctx context.Context, tx Transaction) (*KPISummary, error) {
		view, err := uc.loadView(ctx, tx, &r.From, r.To, nil)
		if err != nil {
			return nil, err
		}
		orders, err := uc.repos.Orders.List(ctx, tx, domain.CommerceFilter{From: &r.From, To: &r.To})
		if err != nil {
			return nil, err
		}
		refunds, err := uc.repos.Refunds.List(ctx, tx, domain.CommerceFilter{From: &r.From, To: &r.To})
		if err != nil {
			return nil, err
		}

		kpi := buildKPI(profitLossFromView(view, r).Totals, view.sumRole(domain.AccountRoleFees), orders, refunds)
		kpi.Period = KPIPeriod{Start: r.From, End: r.To, Label: label}
		return kpi, nil
	})
}

func buildKPI(pl ProfitLossTotals, fees decimal.Decimal, orders []*domain.Order, refunds []*domain.Refund) *KPISummary {
	kpi := &KPISummary{
		Revenue: KPIRevenue{
			Total: pl.TotalRevenue,
			Gross: pl.GrossProfit,
			Net:   pl.NetProfit,
		},
		Margins: KPIMargins{
			Gross: percentOf(pl.GrossProfit, pl.TotalRevenue),
			Net:   percentOf(pl.NetProfit, pl.TotalRevenue),
		},
		Expenses: KPIExpenses{
			Total: pl.TotalExpenses,
			COGS:  pl.TotalCOGS,
			Fees:  fees,
		},
	}

	orderValue := decimal.Zero
	byCustomer := map[string]*TopCustomer{}
	for _, o := range orders {
		orderValue = orderValue.Add(o.TotalPrice)

		key := o.CustomerEmail
		if key == "" {
			key = o.Customer()
		}
		c, ok := byCustomer[key]
		if !ok {
			c = &TopCustomer{Customer: key}
			byCustomer[key] = c
		}
		c.Orders++
		c.Value = c.Value.Add(o.TotalPrice)
	}

	kpi.Orders = KPIOrders{Count: len(orders), Value: orderValue, Average: decimal.Zero}
	if len(orders) > 0 {
		kpi.Orders.Average = orderValue.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	}

	refundTotal := decimal.Zero
	for _, rf := range refunds {
		refundTotal = refundTotal.Add(rf.Amount)
	}
	kpi.Refunds = KPIRefunds{Count: len(refunds), Total: refundTotal, RefundRate: percentOf(refundTotal, orderValue)}

	customers := make([]TopCustomer, 0, len(byCustomer))
	for _, c := range byCustomer {
		customers = append(customers, *c)
	}
	sort.Slice(customers, func(i, j int) bool {
		if cmp := customers[i].Value.Cmp(customers[j].Value); cmp != 0 {
			return cmp > 0
		}
		return customers[i].Customer < customers[j].Customer
	})
	if len(customers) > TopCustomersLimit {
		customers = customers[:TopCustomersLimit]
	}
	kpi.TopCustomers = customers

	return kpi
}

// BreakdownItem is one account's share of a category total.
type BreakdownItem struct {
	AccountID  string          `json:"accountId"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Breakdown ranks accounts of one category by amount.
type Breakdown struct {
	Period    Period          `json:"period"`
	Total     decimal.Decimal `json:"total"`
	Top       []BreakdownItem `json:"top"`
	Breakdown []BreakdownItem `json:"breakdown"`
}

// ExpenseBreakdown ranks expense and COGS accounts by activity between from and to.
func (uc *ReportUseCase) ExpenseBreakdown(ctx context.Context, from, to *time.Time, limit int) (*Breakdown, error) {
	return uc.breakdown(ctx, "expense_breakdown", from, to, limit, domain.AccountTypeExpense, domain.AccountTypeCOGS)
}

// RevenueBreakdown ranks revenue accounts by activity between from and to.
func (uc *ReportUseCase) RevenueBreakdown(ctx context.Context, from, to *time.Time, limit int) (*Breakdown, error) {
	return uc.breakdown(ctx, "revenue_breakdown", from, to, limit, domain.AccountTypeRevenue)
}

func (uc *ReportUseCase) breakdown(ctx context.Context, name string, from, to *time.Time, limit int, types ...domain.AccountType) (*Breakdown, error) {
	r, err := uc.defaultRange(from, to)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultBreakdownLimit
	}

	params := []string{dateKey(r.From), dateKey(r.To), strconv.Itoa(limit)}
	return runReport(ctx, uc, name, params, func(ctx context.Context, tx Transaction) (*Breakdown, error) {
		view, err := uc.loadView(ctx, tx, &r.From, r.To, nil)
		if err != nil {
			return nil, err
		}
		return buildBreakdown(r, view.amounts(types...), limit), nil
	})
}

// buildBreakdown sorts by absolute amount; shares are of the absolute total
// so that contra balances cannot push a share past 100.
func buildBreakdown(r domain.DateRange, amounts []AccountAmount, limit int) *Breakdown {
	sort.SliceStable(amounts, func(i, j int) bool {
		return amounts[i].Amount.Abs().GreaterThan(amounts[j].Amount.Abs())
	})

	absTotal := decimal.Zero
	for _, a := range amounts {
		absTotal = absTotal.Add(a.Amount.Abs())
	}

	items := make([]BreakdownItem, 0, len(amounts))
	for _, a := range amounts {
		items = append(items, BreakdownItem{
			AccountID:  a.AccountID,
			Code:       a.Code,
			Name:       a.Name,
			Amount:     a.Amount,
			Percentage: percentOf(a.Amount.Abs(), absTotal),
		})
	}

	top := items
	if len(top) > limit {
		top = top[:limit]
	}

	return &Breakdown{
		Period:    periodOf(r),
		Total:     sumAmounts(amounts),
		Top:       top,
		Breakdown: items,
	}
}

// TrendBucket aggregates orders falling in one period.
type TrendBucket struct {
	Period        string          `json:"period"`
	Orders        int             `json:"orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	Tax           decimal.Decimal `json:"tax"`
	AvgOrderValue decimal.Decimal `json:"avgOrderValue"`
}

// SalesTrend is order volume bucketed over time.
type SalesTrend struct {
	Period  Period        `json:"period"`
	GroupBy string        `json:"groupBy"`
	Trends  []TrendBucket `json:"trends"`
}

// SalesTrend buckets orders between from and to by day, week or month.
// The range defaults to the trailing month.
func (uc *ReportUseCase) SalesTrend(ctx context.Context, from, to *time.Time, groupBy string) (*SalesTrend, error) {
	switch groupBy {
	case "":
		groupBy = GroupByDay
	case GroupByDay, GroupByWeek, GroupByMonth:
	default:
		return nil, domain.NewValidationError("groupBy", "must be day, week or month")
	}

	now := uc.now()
	if from == nil {
		start := now.AddDate(0, -1, 0)
		from = &start
	}
	r, err := uc.defaultRange(from, to)
	if err != nil {
		return nil, err
	}

	return runReport(ctx, uc, "sales_trend", []string{dateKey(r.From), dateKey(r.To), groupBy}, func(ctx context.Context, tx Transaction) (*SalesTrend, error) {
		orders, err := uc.repos.Orders.List(ctx, tx, domain.CommerceFilter{From: &r.From, To: &r.To})
		if err != nil {
			return nil, err
		}
		return &SalesTrend{Period: periodOf(r), GroupBy: groupBy, Trends: bucketOrders(orders, groupBy)}, nil
	})
}

func bucketOrders(orders []*domain.Order, groupBy string) []TrendBucket {
	buckets := map[string]*TrendBucket{}
	for _, o := range orders {
		key := trendKey(o.EffectiveDate(), groupBy)
		b, ok := buckets[key]
		if !ok {
			b = &TrendBucket{Period: key}
			buckets[key] = b
		}
		b.Orders++
		b.Revenue = b.Revenue.Add(o.TotalPrice)
		b.Tax = b.Tax.Add(o.TotalTax)
	}

	out := make([]TrendBucket, 0, len(buckets))
	for _, b := range buckets {
		b.AvgOrderValue = b.Revenue.Div(decimal.NewFromInt(int64(b.Orders))).Round(2)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// trendKey labels t's bucket. Weeks start on Sunday.
func trendKey(t time.Time, groupBy string) string {
	t = t.UTC()
	switch groupBy {
	case GroupByWeek:
		return t.AddDate(0, 0, -int(t.Weekday())).Format(time.DateOnly)
	case GroupByMonth:
		return t.Format("2006-01")
	default:
		return t.Format(time.DateOnly)
	}
}
