package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auto-match thresholds.
var (
	MatchAmountTolerance = decimal.RequireFromString("0.01")
	MatchMaxGap          = 7 * 24 * time.Hour
)

// MatchMethod records how a reconciliation match was created.
type MatchMethod string

const (
	MatchMethodAuto   MatchMethod = "AUTO"
	MatchMethodManual MatchMethod = "MANUAL"
)

// ReconciliationMatch links a payout to the order it settles.
type ReconciliationMatch struct {
	ID        string
	PayoutID  string
	OrderID   string
	AccountID string
	Amount    decimal.Decimal
	IsMatched bool
	MatchedAt *time.Time
	Method    MatchMethod
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsMatchCandidate reports whether an order plausibly settles a payout:
// amounts differ by less than a cent and the two are less than a week apart.
func IsMatchCandidate(payout *Payout, order *Order) bool {
	if order.TotalPrice.Sub(payout.Amount).Abs().GreaterThanOrEqual(MatchAmountTolerance) {
		return false
	}
	gap := order.CreatedAt.Sub(payout.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	return gap < MatchMaxGap
}

// MatchFilter narrows match listings.
type MatchFilter struct {
	StoreID   *string
	IsMatched *bool
	Limit     int
	Offset    int
}
