package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store is a commerce storefront whose activity feeds the ledger.
type Store struct {
	ID        string
	Domain    string
	Name      string
	Currency  string
	IsActive  bool
	CreatedAt time.Time
}

// Order is the normalized view of a commerce order.
type Order struct {
	ID              string
	ExternalID      string
	StoreID         *string
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	TotalPrice      decimal.Decimal
	SubtotalPrice   decimal.Decimal
	TotalTax        decimal.Decimal
	Currency        string
	FinancialStatus string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}

// Customer returns the best available customer label.
func (o *Order) Customer() string {
	switch {
	case o.CustomerName != "":
		return o.CustomerName
	case o.CustomerEmail != "":
		return o.CustomerEmail
	default:
		return "Guest"
	}
}

// EffectiveDate is when the order counts for reporting: processing time, else creation time.
func (o *Order) EffectiveDate() time.Time {
	if o.ProcessedAt != nil {
		return *o.ProcessedAt
	}
	return o.CreatedAt
}

// Order financial statuses that trigger revenue recognition.
const (
	FinancialStatusPaid          = "paid"
	FinancialStatusPartiallyPaid = "partially_paid"
)

// IsPaid reports whether the order's payment has been captured.
func (o *Order) IsPaid() bool {
	return o.FinancialStatus == FinancialStatusPaid || o.FinancialStatus == FinancialStatusPartiallyPaid
}

// Refund is money returned to a customer against an order.
type Refund struct {
	ID         string
	ExternalID string
	OrderID    string
	StoreID    *string
	Amount     decimal.Decimal
	Currency   string
	Reason     string
	CreatedAt  time.Time
}

// Payout is a settlement from the commerce platform to the merchant.
type Payout struct {
	ID         string
	ExternalID string
	StoreID    *string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	Currency   string
	Status     string
	CreatedAt  time.Time
}

// CommerceFilter narrows order, refund and payout listings. Orders are dated
// by EffectiveDate, refunds and payouts by CreatedAt.
type CommerceFilter struct {
	StoreID *string
	From    *time.Time
	To      *time.Time
}

// DocumentKind separates receivables from payables.
type DocumentKind string

const (
	DocumentKindInvoice DocumentKind = "INVOICE"
	DocumentKindBill    DocumentKind = "BILL"
)

// Document is an invoice issued to a customer or a bill received from a vendor.
type Document struct {
	ID           string
	Kind         DocumentKind
	Number       string
	Counterparty string
	Currency     string
	Total        decimal.Decimal
	Paid         decimal.Decimal
	BookedRate   decimal.Decimal
	IssueDate    time.Time
	DueDate      time.Time
	Status       string
	CreatedAt    time.Time
}

// Outstanding returns the unpaid remainder.
func (d *Document) Outstanding() decimal.Decimal {
	return d.Total.Sub(d.Paid)
}

// IsOpen reports whether anything remains to be paid.
func (d *Document) IsOpen() bool {
	return d.Outstanding().IsPositive()
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Kind     DocumentKind
	OpenOnly bool
	Currency *string
}

// ExchangeRate converts one unit of From into To as of EffectiveDate.
type ExchangeRate struct {
	ID            string
	From          string
	To            string
	Rate          decimal.Decimal
	EffectiveDate time.Time
}

// Budget is a planned amount for an account in a fiscal period.
// Month is 1-12, or 0 for an annual budget.
type Budget struct {
	ID         string
	AccountID  string
	FiscalYear int
	Month      int
	Amount     decimal.Decimal
}

// Settings holds the default accounts used by automatic postings.
// Any of them may be unset.
type Settings struct {
	DefaultCashAccountID        *string
	DefaultSalesAccountID       *string
	DefaultTaxAccountID         *string
	DefaultFeeAccountID         *string
	DefaultFeesPayableAccountID *string
	DefaultCOGSAccountID        *string
	DefaultInventoryAccountID   *string
	DefaultARAccountID          *string
	DefaultAPAccountID          *string
}
