package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFixedAsset_Depreciation(t *testing.T) {
	asset := FixedAsset{
		PurchaseDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Cost:             decimal.NewFromInt(1300),
		SalvageValue:     decimal.NewFromInt(100),
		UsefulLifeMonths: 12,
	}

	tests := []struct {
		name        string
		asOf        time.Time
		accumulated string
	}{
		{"before purchase", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), "0"},
		{"same month", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "0"},
		{"one full month", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), "100"},
		{"six months", time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC), "600"},
		{"beyond useful life", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "1200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := asset.AccumulatedDepreciation(tt.asOf)
			if !got.Equal(decimal.RequireFromString(tt.accumulated)) {
				t.Errorf("expected %s, got %s", tt.accumulated, got)
			}
		})
	}

	if bv := asset.BookValue(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); !bv.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected book value to bottom out at salvage, got %s", bv)
	}
}

func TestFixedAsset_DisposalStopsDepreciation(t *testing.T) {
	disposed := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	asset := FixedAsset{
		PurchaseDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Cost:             decimal.NewFromInt(1200),
		UsefulLifeMonths: 12,
		DisposalDate:     &disposed,
	}

	asOf := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	if got := asset.AccumulatedDepreciation(asOf); !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected 300, got %s", got)
	}
	if asset.Status(asOf) != AssetStatusDisposed {
		t.Errorf("expected disposed status")
	}
}
