package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/adapter/http/handler"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
	"github.com/iho/gobooks/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler        *handler.AccountHandler
	JournalHandler        *handler.JournalHandler
	ReportHandler         *handler.ReportHandler
	ReconciliationHandler *handler.ReconciliationHandler
	IngestHandler         *handler.IngestHandler
	ReferenceHandler      *handler.ReferenceHandler
	LedgerHandler         *handler.LedgerHandler
	HealthHandler         *handler.HealthHandler

	// TokenVerifier is nil when authentication is disabled.
	TokenVerifier middleware.TokenVerifier
	Metrics       *metrics.Metrics
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler
	Logger         zerolog.Logger

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	RateLimiter     *middleware.RateLimiter
	IngestPerMinute int
	RequestTimeout  time.Duration
	Development     bool
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.SecureHeaders(cfg.Development))
	r.Use(chimiddleware.Compress(5, "application/json"))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NewAuthenticator(cfg.TokenVerifier, cfg.Metrics).Authenticate)

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotency.Wrap)
		}

		write := r.With(middleware.RequireWriter)
		manage := r.With(middleware.RequireAccountManager)

		// Accounts
		r.Get("/accounts", cfg.AccountHandler.List)
		r.Get("/accounts/{id}", cfg.AccountHandler.Get)
		r.Get("/accounts/{id}/balance", cfg.AccountHandler.Balance)
		manage.Post("/accounts", cfg.AccountHandler.Create)
		manage.Post("/accounts/seed", cfg.AccountHandler.Seed)
		manage.Patch("/accounts/{id}", cfg.AccountHandler.Update)

		// Journal
		r.Get("/journal-entries", cfg.JournalHandler.List)
		r.Get("/journal-entries/{id}", cfg.JournalHandler.Get)
		write.Post("/journal-entries", cfg.JournalHandler.Create)
		write.Post("/journal-entries/{id}/post", cfg.JournalHandler.Post)
		write.Post("/journal-entries/{id}/reverse", cfg.JournalHandler.Reverse)

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/trial-balance", cfg.ReportHandler.TrialBalance)
			r.Get("/profit-loss", cfg.ReportHandler.ProfitLoss)
			r.Get("/balance-sheet", cfg.ReportHandler.BalanceSheet)
			r.Get("/cash-flow", cfg.ReportHandler.CashFlow)
			r.Get("/tax-summary", cfg.ReportHandler.TaxSummary)
			r.Get("/ar-aging", cfg.ReportHandler.ARAging)
			r.Get("/ap-aging", cfg.ReportHandler.APAging)
			r.Get("/budget-variance", cfg.ReportHandler.BudgetVariance)
			r.Get("/fx-revaluation", cfg.ReportHandler.FXRevaluation)
			r.Get("/consolidated", cfg.ReportHandler.Consolidated)
			r.Get("/kpi", cfg.ReportHandler.KPI)
			r.Get("/expense-breakdown", cfg.ReportHandler.ExpenseBreakdown)
			r.Get("/revenue-breakdown", cfg.ReportHandler.RevenueBreakdown)
			r.Get("/sales-trend", cfg.ReportHandler.SalesTrend)
			r.Get("/inventory-valuation", cfg.ReportHandler.InventoryValuation)
			r.Get("/fixed-assets", cfg.ReportHandler.FixedAssets)
			r.Get("/audit-trail", cfg.ReportHandler.AuditTrail)
			r.Get("/dashboard", cfg.ReportHandler.Dashboard)
		})

		// Reconciliation
		r.Get("/reconciliation", cfg.ReconciliationHandler.List)
		r.Get("/reconciliation/unmatched-payouts", cfg.ReconciliationHandler.UnmatchedPayouts)
		r.Get("/reconciliation/unmatched-orders", cfg.ReconciliationHandler.UnmatchedOrders)
		r.Get("/reconciliation/summary", cfg.ReconciliationHandler.Summary)
		write.Post("/reconciliation", cfg.ReconciliationHandler.Create)
		write.Post("/reconciliation/auto-match", cfg.ReconciliationHandler.AutoMatch)
		write.Patch("/reconciliation/{id}", cfg.ReconciliationHandler.Update)
		write.Delete("/reconciliation/{id}", cfg.ReconciliationHandler.Delete)

		// Ingest
		r.Route("/ingest", func(r chi.Router) {
			r.Use(middleware.RequireWriter)
			if cfg.IngestPerMinute > 0 {
				r.Use(middleware.IngestLimit(cfg.IngestPerMinute, cfg.Metrics))
			}
			r.Post("/orders", cfg.IngestHandler.Orders)
			r.Post("/refunds", cfg.IngestHandler.Refunds)
			r.Post("/payouts", cfg.IngestHandler.Payouts)
			r.Post("/cogs", cfg.IngestHandler.COGS)
		})

		// Reference data
		r.Get("/stores", cfg.ReferenceHandler.ListStores)
		r.Get("/documents", cfg.ReferenceHandler.ListDocuments)
		r.Get("/settings", cfg.ReferenceHandler.GetSettings)
		write.Put("/stores", cfg.ReferenceHandler.UpsertStore)
		write.Post("/documents", cfg.ReferenceHandler.CreateDocument)
		write.Post("/exchange-rates", cfg.ReferenceHandler.CreateExchangeRate)
		write.Put("/budgets", cfg.ReferenceHandler.SetBudget)
		write.Post("/inventory-items", cfg.ReferenceHandler.CreateInventoryItem)
		write.Post("/inventory-items/{id}/movements", cfg.ReferenceHandler.RecordStockMovement)
		write.Post("/fixed-assets", cfg.ReferenceHandler.CreateFixedAsset)
		manage.Put("/settings", cfg.ReferenceHandler.SaveSettings)

		// Ledger
		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}
