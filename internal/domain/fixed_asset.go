package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FixedAsset is a capitalized purchase depreciated straight-line over its useful life.
type FixedAsset struct {
	ID               string
	Number           string
	Name             string
	Category         string
	PurchaseDate     time.Time
	Cost             decimal.Decimal
	SalvageValue     decimal.Decimal
	UsefulLifeMonths int
	DisposalDate     *time.Time
}

// Fixed asset statuses.
const (
	AssetStatusActive   = "ACTIVE"
	AssetStatusDisposed = "DISPOSED"
)

// MonthsInService counts whole months from purchase to asOf, stopping at disposal.
func (a *FixedAsset) MonthsInService(asOf time.Time) int {
	end := asOf
	if a.DisposalDate != nil && a.DisposalDate.Before(end) {
		end = *a.DisposalDate
	}
	if end.Before(a.PurchaseDate) {
		return 0
	}
	months := (end.Year()-a.PurchaseDate.Year())*12 + int(end.Month()) - int(a.PurchaseDate.Month())
	if end.Day() < a.PurchaseDate.Day() {
		months--
	}
	return max(months, 0)
}

// AccumulatedDepreciation returns straight-line depreciation to asOf, capped at cost less salvage.
func (a *FixedAsset) AccumulatedDepreciation(asOf time.Time) decimal.Decimal {
	depreciable := a.Cost.Sub(a.SalvageValue)
	if a.UsefulLifeMonths <= 0 || !depreciable.IsPositive() {
		return decimal.Zero
	}
	months := min(a.MonthsInService(asOf), a.UsefulLifeMonths)
	monthly := depreciable.Div(decimal.NewFromInt(int64(a.UsefulLifeMonths)))
	return monthly.Mul(decimal.NewFromInt(int64(months))).Round(2)
}

// BookValue is cost less accumulated depreciation.
func (a *FixedAsset) BookValue(asOf time.Time) decimal.Decimal {
	return a.Cost.Sub(a.AccumulatedDepreciation(asOf))
}

// Status reports whether the asset has been disposed of by asOf.
func (a *FixedAsset) Status(asOf time.Time) string {
	if a.DisposalDate != nil && !a.DisposalDate.After(asOf) {
		return AssetStatusDisposed
	}
	return AssetStatusActive
}
