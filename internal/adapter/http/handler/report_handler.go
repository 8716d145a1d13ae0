package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// ReportService produces the financial reports.
type ReportService interface {
	TrialBalance(ctx context.Context, asOf *time.Time) (*usecase.TrialBalance, error)
	ProfitLoss(ctx context.Context, from, to *time.Time) (*usecase.ProfitLoss, error)
	BalanceSheet(ctx context.Context, asOf *time.Time) (*usecase.BalanceSheet, error)
	CashFlow(ctx context.Context, from, to *time.Time) (*usecase.CashFlow, error)
	TaxSummary(ctx context.Context, from, to *time.Time) (*usecase.TaxSummary, error)
	ARAging(ctx context.Context, asOf *time.Time) (*usecase.AgingReport, error)
	APAging(ctx context.Context, asOf *time.Time) (*usecase.AgingReport, error)
	BudgetVariance(ctx context.Context, fiscalYear, month int) (*usecase.BudgetVariance, error)
	FXRevaluation(ctx context.Context, currency string, asOf *time.Time) (*usecase.FXRevaluation, error)
	Consolidated(ctx context.Context, from, to *time.Time) (*usecase.ConsolidatedReport, error)
	KPISummary(ctx context.Context, period string) (*usecase.KPISummary, error)
	ExpenseBreakdown(ctx context.Context, from, to *time.Time, limit int) (*usecase.Breakdown, error)
	RevenueBreakdown(ctx context.Context, from, to *time.Time, limit int) (*usecase.Breakdown, error)
	SalesTrend(ctx context.Context, from, to *time.Time, groupBy string) (*usecase.SalesTrend, error)
	InventoryValuation(ctx context.Context) (*usecase.InventoryValuation, error)
	FixedAssetRegister(ctx context.Context, asOf *time.Time) (*usecase.FixedAssetRegister, error)
	AuditTrail(ctx context.Context, input usecase.AuditTrailInput) (*usecase.AuditTrail, error)
}

// DashboardService assembles the dashboard composite.
type DashboardService interface {
	Dashboard(ctx context.Context) (*usecase.Dashboard, error)
}

// ReportHandler serves /reports.
type ReportHandler struct {
	reportUC    ReportService
	dashboardUC DashboardService
	now         func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportUC ReportService, dashboardUC DashboardService) *ReportHandler {
	return &ReportHandler{reportUC: reportUC, dashboardUC: dashboardUC, now: time.Now}
}

// respond writes a report or the mapped error.
func respond(w http.ResponseWriter, name string, report any, err error) {
	if err != nil {
		writeDomainError(w, "failed to build "+name, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// asOfReport serves reports that take a single optional asOf date.
func (h *ReportHandler) asOfReport(w http.ResponseWriter, r *http.Request, name string, run func(context.Context, *time.Time) (any, error)) {
	asOf, err := parseDateQuery(r, "asOf")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	report, err := run(r.Context(), asOf)
	respond(w, name, report, err)
}

// rangeReport serves reports that take startDate and endDate.
func (h *ReportHandler) rangeReport(w http.ResponseWriter, r *http.Request, name string, run func(ctx context.Context, from, to *time.Time) (any, error)) {
	from, to, err := parseRange(r)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	report, err := run(r.Context(), from, to)
	respond(w, name, report, err)
}

// TrialBalance serves GET /reports/trial-balance?asOf.
func (h *ReportHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	h.asOfReport(w, r, "trial balance", func(ctx context.Context, asOf *time.Time) (any, error) {
		return h.reportUC.TrialBalance(ctx, asOf)
	})
}

// ProfitLoss serves GET /reports/profit-loss?startDate&endDate.
func (h *ReportHandler) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(w, r, "profit and loss", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.ProfitLoss(ctx, from, to)
	})
}

// BalanceSheet serves GET /reports/balance-sheet?asOf.
func (h *ReportHandler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	h.asOfReport(w, r, "balance sheet", func(ctx context.Context, asOf *time.Time) (any, error) {
		return h.reportUC.BalanceSheet(ctx, asOf)
	})
}

// CashFlow serves GET /reports/cash-flow?startDate&endDate.
func (h *ReportHandler) CashFlow(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(w, r, "cash flow", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.CashFlow(ctx, from, to)
	})
}

// TaxSummary serves GET /reports/tax-summary?startDate&endDate.
func (h *ReportHandler) TaxSummary(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(w, r, "tax summary", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.TaxSummary(ctx, from, to)
	})
}

// ARAging serves GET /reports/ar-aging?asOf.
func (h *ReportHandler) ARAging(w http.ResponseWriter, r *http.Request) {
	h.asOfReport(w, r, "receivables aging", func(ctx context.Context, asOf *time.Time) (any, error) {
		return h.reportUC.ARAging(ctx, asOf)
	})
}

// APAging serves GET /reports/ap-aging?asOf.
func (h *ReportHandler) APAging(w http.ResponseWriter, r *http.Request) {
	h.asOfReport(w, r, "payables aging", func(ctx context.Context, asOf *time.Time) (any, error) {
		return h.reportUC.APAging(ctx, asOf)
	})
}

// BudgetVariance serves GET /reports/budget-variance?fiscalYear&month.
// The year defaults to the current one and month 0 means the whole year.
func (h *ReportHandler) BudgetVariance(w http.ResponseWriter, r *http.Request) {
	year, err := strictIntQuery(r, "fiscalYear", h.now().Year())
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	month, err := strictIntQuery(r, "month", 0)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	report, err := h.reportUC.BudgetVariance(r.Context(), year, month)
	respond(w, "budget variance", report, err)
}

// FXRevaluation serves GET /reports/fx-revaluation?currency&asOf.
func (h *ReportHandler) FXRevaluation(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	h.asOfReport(w, r, "fx revaluation", func(ctx context.Context, asOf *time.Time) (any, error) {
		return h.reportUC.FXRevaluation(ctx, currency, asOf)
	})
}

// Consolidated serves GET /reports/consolidated?startDate&endDate.
func (h *ReportHandler) Consolidated(w http.ResponseWriter, r *http.Request) {
	h.rangeReport(w, r, "consolidated report", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.Consolidated(ctx, from, to)
	})
}

// KPI serves GET /reports/kpi?period.
func (h *ReportHandler) KPI(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportUC.KPISummary(r.Context(), r.URL.Query().Get("period"))
	respond(w, "kpi summary", report, err)
}

// ExpenseBreakdown serves GET /reports/expense-breakdown?startDate&endDate&limit.
func (h *ReportHandler) ExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 0)
	h.rangeReport(w, r, "expense breakdown", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.ExpenseBreakdown(ctx, from, to, limit)
	})
}

// RevenueBreakdown serves GET /reports/revenue-breakdown?startDate&endDate&limit.
func (h *ReportHandler) RevenueBreakdown(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 0)
	h.rangeReport(w, r, "revenue breakdown", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.RevenueBreakdown(ctx, from, to, limit)
	})
}

// SalesTrend serves GET /reports/sales-trend?startDate&endDate&groupBy.
func (h *ReportHandler) SalesTrend(w http.ResponseWriter, r *http.Request) {
	groupBy := r.URL.Query().Get("groupBy")
	h.rangeReport(w, r, "sales trend", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.SalesTrend(ctx, from, to, groupBy)
	})
}

// InventoryValuation serves GET /reports/inventory-valuation.
func (h *ReportHandler) InventoryValuation(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportUC.InventoryValuation(r.Context())
	respond(w, "inventory valuation", report, err)
}

// FixedAssets serves GET /reports/fixed-assets?asOf.
func (h *ReportHandler) FixedAssets(w http.ResponseWriter, r *http.Request) {
	h.asOfReport(w, r, "fixed asset register", func(ctx context.Context, asOf *time.Time) (any, error) {
		return h.reportUC.FixedAssetRegister(ctx, asOf)
	})
}

// AuditTrail serves GET /reports/audit-trail?startDate&endDate&userId&resourceType&action.
func (h *ReportHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.rangeReport(w, r, "audit trail", func(ctx context.Context, from, to *time.Time) (any, error) {
		return h.reportUC.AuditTrail(ctx, usecase.AuditTrailInput{
			From:         from,
			To:           to,
			UserID:       q.Get("userId"),
			ResourceType: q.Get("resourceType"),
			Action:       q.Get("action"),
		})
	})
}

// Dashboard serves GET /reports/dashboard.
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	report, err := h.dashboardUC.Dashboard(r.Context())
	respond(w, "dashboard", report, err)
}

// strictIntQuery parses an optional integer parameter, rejecting garbage.
func strictIntQuery(r *http.Request, key string, defaultValue int) (int, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return i, nil
}
