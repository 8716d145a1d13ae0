package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// InventoryLine is one item carried at its valuation method.
type InventoryLine struct {
	ItemID         string                 `json:"itemId"`
	SKU            string                 `json:"sku"`
	Name           string                 `json:"name"`
	Category       string                 `json:"category"`
	Method         domain.ValuationMethod `json:"method"`
	QuantityOnHand int64                  `json:"quantityOnHand"`
	AverageCost    decimal.Decimal        `json:"averageCost"`
	TotalValue     decimal.Decimal        `json:"totalValue"`
}

// InventorySummary totals the valuation.
type InventorySummary struct {
	TotalItems    int                        `json:"totalItems"`
	TotalQuantity int64                      `json:"totalQuantity"`
	TotalValue    decimal.Decimal            `json:"totalValue"`
	ByCategory    map[string]decimal.Decimal `json:"byCategory"`
}

// InventoryValuation values every stock item.
type InventoryValuation struct {
	Items   []InventoryLine  `json:"items"`
	Summary InventorySummary `json:"summary"`
}

// InventoryValuation carries each item at FIFO layers or weighted average cost.
func (uc *ReportUseCase) InventoryValuation(ctx context.Context) (*InventoryValuation, error) {
	return runReport(ctx, uc, "inventory_valuation", nil, func(ctx context.Context, tx Transaction) (*InventoryValuation, error) {
		items, err := uc.repos.Inventory.List(ctx, tx)
		if err != nil {
			return nil, err
		}

		report := &InventoryValuation{
			Items:   make([]InventoryLine, 0, len(items)),
			Summary: InventorySummary{ByCategory: map[string]decimal.Decimal{}},
		}
		for _, it := range items {
			v := it.Value()
			report.Items = append(report.Items, InventoryLine{
				ItemID:         it.ID,
				SKU:            it.SKU,
				Name:           it.Name,
				Category:       it.Category,
				Method:         it.Method,
				QuantityOnHand: v.QuantityOnHand,
				AverageCost:    v.AverageCost,
				TotalValue:     v.TotalValue,
			})
			report.Summary.TotalQuantity += v.QuantityOnHand
			report.Summary.TotalValue = report.Summary.TotalValue.Add(v.TotalValue)
			report.Summary.ByCategory[it.Category] = report.Summary.ByCategory[it.Category].Add(v.TotalValue)
		}
		report.Summary.TotalItems = len(items)

		return report, nil
	})
}

// FixedAssetLine is one asset's depreciation position.
type FixedAssetLine struct {
	AssetID                 string          `json:"assetId"`
	Number                  string          `json:"number"`
	Name                    string          `json:"name"`
	Category                string          `json:"category"`
	PurchaseDate            time.Time       `json:"purchaseDate"`
	Cost                    decimal.Decimal `json:"cost"`
	SalvageValue            decimal.Decimal `json:"salvageValue"`
	UsefulLifeMonths        int             `json:"usefulLifeMonths"`
	MonthsInService         int             `json:"monthsInService"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulatedDepreciation"`
	BookValue               decimal.Decimal `json:"bookValue"`
	Status                  string          `json:"status"`
}

// FixedAssetSummary totals the register.
type FixedAssetSummary struct {
	TotalAssets       int             `json:"totalAssets"`
	TotalCost         decimal.Decimal `json:"totalCost"`
	TotalDepreciation decimal.Decimal `json:"totalDepreciation"`
	TotalBookValue    decimal.Decimal `json:"totalBookValue"`
}

// FixedAssetRegister lists assets with straight-line depreciation to a date.
type FixedAssetRegister struct {
	AsOfDate time.Time         `json:"asOfDate"`
	Assets   []FixedAssetLine  `json:"assets"`
	Summary  FixedAssetSummary `json:"summary"`
}

// FixedAssetRegister depreciates every asset to asOf, defaulting to today.
func (uc *ReportUseCase) FixedAssetRegister(ctx context.Context, asOf *time.Time) (*FixedAssetRegister, error) {
	date := uc.asOfOrToday(asOf)

	return runReport(ctx, uc, "fixed_assets", []string{dateKey(date)}, func(ctx context.Context, tx Transaction) (*FixedAssetRegister, error) {
		assets, err := uc.repos.FixedAssets.List(ctx, tx)
		if err != nil {
			return nil, err
		}

		report := &FixedAssetRegister{AsOfDate: date, Assets: make([]FixedAssetLine, 0, len(assets))}
		for _, a := range assets {
			line := FixedAssetLine{
				AssetID:                 a.ID,
				Number:                  a.Number,
				Name:                    a.Name,
				Category:                a.Category,
				PurchaseDate:            a.PurchaseDate,
				Cost:                    a.Cost,
				SalvageValue:            a.SalvageValue,
				UsefulLifeMonths:        a.UsefulLifeMonths,
				MonthsInService:         min(a.MonthsInService(date), a.UsefulLifeMonths),
				AccumulatedDepreciation: a.AccumulatedDepreciation(date),
				BookValue:               a.BookValue(date),
				Status:                  a.Status(date),
			}
			report.Assets = append(report.Assets, line)
			report.Summary.TotalCost = report.Summary.TotalCost.Add(line.Cost)
			report.Summary.TotalDepreciation = report.Summary.TotalDepreciation.Add(line.AccumulatedDepreciation)
			report.Summary.TotalBookValue = report.Summary.TotalBookValue.Add(line.BookValue)
		}
		report.Summary.TotalAssets = len(assets)

		return report, nil
	})
}

// AuditTrailInput filters the audit trail.
type AuditTrailInput struct {
	From         *time.Time
	To           *time.Time
	UserID       string
	ResourceType string
	Action       string
}

// AuditTrailSummary counts the returned logs.
type AuditTrailSummary struct {
	TotalEntries   int            `json:"totalEntries"`
	ByAction       map[string]int `json:"byAction"`
	ByResourceType map[string]int `json:"byResourceType"`
}

// AuditTrail is the most recent matching audit logs.
type AuditTrail struct {
	Logs    []*domain.AuditLog `json:"logs"`
	Summary AuditTrailSummary  `json:"summary"`
}

// AuditTrail returns the newest matching audit logs. It is never cached.
func (uc *ReportUseCase) AuditTrail(ctx context.Context, input AuditTrailInput) (*AuditTrail, error) {
	filter := domain.AuditFilter{
		UserID:       input.UserID,
		Action:       input.Action,
		ResourceType: input.ResourceType,
		Limit:        AuditTrailLimit,
	}
	if input.From != nil {
		from := domain.StartOfDay(*input.From)
		filter.StartDate = &from
	}
	if input.To != nil {
		to := domain.EndOfDay(*input.To)
		filter.EndDate = &to
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, domain.NewValidationError("startDate", "must not be after endDate")
	}

	tx, err := uc.txManager.BeginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	logs, err := uc.repos.Audit.List(ctx, tx, filter)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	trail := &AuditTrail{
		Logs: logs,
		Summary: AuditTrailSummary{
			TotalEntries:   len(logs),
			ByAction:       map[string]int{},
			ByResourceType: map[string]int{},
		},
	}
	for _, l := range logs {
		trail.Summary.ByAction[l.Action]++
		trail.Summary.ByResourceType[l.ResourceType]++
	}
	if trail.Logs == nil {
		trail.Logs = make([]*domain.AuditLog, 0)
	}
	return trail, nil
}
