package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dashboard is the landing-page composite.
type Dashboard struct {
	GeneratedAt    time.Time              `json:"generatedAt"`
	KPI            *KPISummary            `json:"kpi"`
	Receivables    AgingTotals            `json:"receivables"`
	Payables       AgingTotals            `json:"payables"`
	Reconciliation *ReconciliationSummary `json:"reconciliation"`
}

// DashboardUseCase assembles the dashboard from independent reports.
type DashboardUseCase struct {
	reports        *ReportUseCase
	reconciliation *ReconciliationUseCase
}

// NewDashboardUseCase creates a new DashboardUseCase.
func NewDashboardUseCase(reports *ReportUseCase, reconciliation *ReconciliationUseCase) *DashboardUseCase {
	return &DashboardUseCase{reports: reports, reconciliation: reconciliation}
}

// Dashboard loads the monthly KPIs, both aging summaries and the reconciliation
// counts concurrently. Each part reads its own snapshot; the first failure
// cancels the rest.
func (uc *DashboardUseCase) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{GeneratedAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		kpi, err := uc.reports.KPISummary(gctx, KPIPeriodMonth)
		if err != nil {
			return err
		}
		d.KPI = kpi
		return nil
	})
	g.Go(func() error {
		ar, err := uc.reports.ARAging(gctx, nil)
		if err != nil {
			return err
		}
		d.Receivables = ar.Summary
		return nil
	})
	g.Go(func() error {
		ap, err := uc.reports.APAging(gctx, nil)
		if err != nil {
			return err
		}
		d.Payables = ap.Summary
		return nil
	})
	g.Go(func() error {
		summary, err := uc.reconciliation.Summary(gctx, nil)
		if err != nil {
			return err
		}
		d.Reconciliation = summary
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
