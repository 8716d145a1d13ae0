package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the fold of posted lines for one account.
type Balance struct {
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`
}

// NewBalance builds a Balance with Balance = debit - credit.
func NewBalance(debit, credit decimal.Decimal) Balance {
	return Balance{Debit: debit, Credit: credit, Balance: debit.Sub(credit)}
}

// Add accumulates another line amount into the balance.
func (b Balance) Add(debit, credit decimal.Decimal) Balance {
	return NewBalance(b.Debit.Add(debit), b.Credit.Add(credit))
}

// BalanceFilter selects the posted lines folded into balances.
// From is inclusive and optional; To is inclusive. Empty AccountIDs means all accounts.
type BalanceFilter struct {
	AccountIDs []string
	From       *time.Time
	To         time.Time
	StoreID    *string
}

// Balances maps account ID to its folded balance.
type Balances map[string]Balance

// Get returns the balance for id, zero when the account had no activity.
func (b Balances) Get(id string) Balance {
	if bal, ok := b[id]; ok {
		return bal
	}
	return NewBalance(decimal.Zero, decimal.Zero)
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last instant of t's day in UTC.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// DateRange is an inclusive span of days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange normalizes from and to to whole days.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: StartOfDay(from), To: EndOfDay(to)}
}

// Valid reports whether the range is not inverted.
func (r DateRange) Valid() bool {
	return !r.To.Before(r.From)
}

// MonthRange returns the range covering one month, or the whole year when month is 0.
func MonthRange(year, month int) DateRange {
	if month == 0 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return DateRange{From: start, To: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: start, To: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}
