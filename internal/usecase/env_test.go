package usecase_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/adapter/repository/sqlite"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type seqIDs struct {
	n atomic.Int64
}

func (g *seqIDs) Generate() string {
	return fmt.Sprintf("id-%04d", g.n.Add(1))
}

type seqRefs struct {
	n atomic.Int64
}

func (g *seqRefs) Generate(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, g.n.Add(1))
}

// ledgerEnv wires every use case to one sqlite database seeded with the default chart.
type ledgerEnv struct {
	repos          sqlite.Repos
	txm            *sqlite.TxManager
	accounts       *usecase.AccountUseCase
	journal        *usecase.JournalUseCase
	posting        *usecase.PostingUseCase
	reports        *usecase.ReportUseCase
	reconciliation *usecase.ReconciliationUseCase
	reference      *usecase.ReferenceDataUseCase
	dashboard      *usecase.DashboardUseCase
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	repos := sqlite.Repositories(store)
	txm := sqlite.NewTxManager(store)
	ids := &seqIDs{}
	logger := zerolog.Nop()

	env := &ledgerEnv{repos: repos, txm: txm}
	env.accounts = usecase.NewAccountUseCase(txm, repos.Accounts, repos.Outbox, repos.Audit, ids, nil)
	env.journal = usecase.NewJournalUseCase(txm, repos.Accounts, repos.Journal, repos.Outbox, repos.Audit, ids, &seqRefs{}, nil)
	env.posting = usecase.NewPostingUseCase(usecase.PostingDeps{
		TxManager: txm,
		Journal:   env.journal,
		Accounts:  repos.Accounts,
		Settings:  repos.Settings,
		Stores:    repos.Stores,
		Orders:    repos.Orders,
		Refunds:   repos.Refunds,
		Payouts:   repos.Payouts,
		IDGen:     ids,
		Logger:    logger,
	})
	env.reports = usecase.NewReportUseCase(txm, usecase.ReportRepositories{
		Accounts:    repos.Accounts,
		Balances:    repos.Balances,
		Stores:      repos.Stores,
		Orders:      repos.Orders,
		Refunds:     repos.Refunds,
		Documents:   repos.Documents,
		Rates:       repos.Rates,
		Budgets:     repos.Budgets,
		Inventory:   repos.Inventory,
		FixedAssets: repos.FixedAssets,
		Audit:       repos.Audit,
	}, nil, logger, nil)
	env.reconciliation = usecase.NewReconciliationUseCase(usecase.ReconciliationDeps{
		TxManager: txm,
		Matches:   repos.Reconciliation,
		Payouts:   repos.Payouts,
		Orders:    repos.Orders,
		Accounts:  repos.Accounts,
		Settings:  repos.Settings,
		Outbox:    repos.Outbox,
		Audit:     repos.Audit,
		IDGen:     ids,
		Logger:    logger,
	})
	env.reference = usecase.NewReferenceDataUseCase(usecase.ReferenceDataDeps{
		Stores:      repos.Stores,
		Accounts:    repos.Accounts,
		Documents:   repos.Documents,
		Rates:       repos.Rates,
		Budgets:     repos.Budgets,
		Inventory:   repos.Inventory,
		FixedAssets: repos.FixedAssets,
		Settings:    repos.Settings,
		IDGen:       ids,
		Logger:      logger,
	})
	env.dashboard = usecase.NewDashboardUseCase(env.reports, env.reconciliation)

	_, err = env.accounts.SeedDefaultChart(context.Background())
	require.NoError(t, err)
	return env
}

func (e *ledgerEnv) account(t *testing.T, code string) *domain.Account {
	t.Helper()
	a, err := e.repos.Accounts.GetByCode(context.Background(), nil, code)
	require.NoError(t, err)
	return a
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// requireDecimal compares decimals by value, ignoring exponent differences.
func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}
