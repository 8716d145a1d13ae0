// Package app assembles the use cases from a storage driver so every binary
// wires the ledger the same way.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	postgresRepo "github.com/iho/gobooks/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gobooks/internal/adapter/repository/redis"
	"github.com/iho/gobooks/internal/adapter/repository/sqlite"
	"github.com/iho/gobooks/internal/infrastructure/config"
	"github.com/iho/gobooks/internal/infrastructure/logging"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
	"github.com/iho/gobooks/internal/infrastructure/postgres"
	"github.com/iho/gobooks/internal/infrastructure/redis"
	"github.com/iho/gobooks/internal/usecase"
)

// Ports is one storage driver's implementation of every repository port.
type Ports struct {
	TxManager      usecase.TransactionManager
	Accounts       usecase.AccountRepository
	Journal        usecase.JournalRepository
	Balances       usecase.BalanceRepository
	Ledger         usecase.LedgerRepository
	Stores         usecase.StoreRepository
	Orders         usecase.OrderRepository
	Refunds        usecase.RefundRepository
	Payouts        usecase.PayoutRepository
	Reconciliation usecase.ReconciliationRepository
	Documents      usecase.DocumentRepository
	Rates          usecase.ExchangeRateRepository
	Budgets        usecase.BudgetRepository
	Inventory      usecase.InventoryRepository
	FixedAssets    usecase.FixedAssetRepository
	Settings       usecase.SettingsRepository
	Outbox         usecase.OutboxRepository
	Audit          usecase.AuditRepository

	// Retrier is nil when the driver never reports serialization failures.
	Retrier usecase.Retrier
}

// SQLitePorts backs every port with db.
func SQLitePorts(db *sqlite.Store) Ports {
	repos := sqlite.Repositories(db)
	return Ports{
		TxManager:      sqlite.NewTxManager(db),
		Accounts:       repos.Accounts,
		Journal:        repos.Journal,
		Balances:       repos.Balances,
		Ledger:         repos.Ledger,
		Stores:         repos.Stores,
		Orders:         repos.Orders,
		Refunds:        repos.Refunds,
		Payouts:        repos.Payouts,
		Reconciliation: repos.Reconciliation,
		Documents:      repos.Documents,
		Rates:          repos.Rates,
		Budgets:        repos.Budgets,
		Inventory:      repos.Inventory,
		FixedAssets:    repos.FixedAssets,
		Settings:       repos.Settings,
		Outbox:         repos.Outbox,
		Audit:          repos.Audit,
	}
}

// PostgresPorts backs every port with pool.
func PostgresPorts(pool *pgxpool.Pool, idGen usecase.IDGenerator, logger *slog.Logger) Ports {
	repos := postgresRepo.Repositories(pool, idGen)
	return Ports{
		TxManager:      postgresRepo.NewTxManager(pool),
		Accounts:       repos.Accounts,
		Journal:        repos.Journal,
		Balances:       repos.Balances,
		Ledger:         repos.Ledger,
		Stores:         repos.Stores,
		Orders:         repos.Orders,
		Refunds:        repos.Refunds,
		Payouts:        repos.Payouts,
		Reconciliation: repos.Reconciliation,
		Documents:      repos.Documents,
		Rates:          repos.Rates,
		Budgets:        repos.Budgets,
		Inventory:      repos.Inventory,
		FixedAssets:    repos.FixedAssets,
		Settings:       repos.Settings,
		Outbox:         repos.Outbox,
		Audit:          repos.Audit,
		Retrier:        postgresRepo.NewRetrier(postgresRepo.WithRetryLogger(logger)),
	}
}

// Options carries the cross-cutting collaborators of the use cases.
type Options struct {
	// Cache is nil when reports are computed on every request.
	Cache   usecase.ReportCache
	IDGen   usecase.IDGenerator
	RefGen  usecase.ReferenceGenerator
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Services holds every use case.
type Services struct {
	Accounts       *usecase.AccountUseCase
	Balances       *usecase.BalanceUseCase
	Journal        *usecase.JournalUseCase
	Posting        *usecase.PostingUseCase
	Reconciliation *usecase.ReconciliationUseCase
	Reference      *usecase.ReferenceDataUseCase
	Reports        *usecase.ReportUseCase
	Dashboard      *usecase.DashboardUseCase
	Ledger         *usecase.LedgerUseCase
}

// NewServices wires the use cases onto p.
func NewServices(p Ports, opts Options) *Services {
	if opts.IDGen == nil {
		opts.IDGen = postgresRepo.NewULIDGenerator()
	}
	if opts.RefGen == nil {
		opts.RefGen = postgresRepo.NewReferenceGenerator()
	}

	s := &Services{}
	s.Accounts = usecase.NewAccountUseCase(p.TxManager, p.Accounts, p.Outbox, p.Audit, opts.IDGen, opts.Metrics)
	s.Balances = usecase.NewBalanceUseCase(p.Accounts, p.Balances)
	s.Journal = usecase.NewJournalUseCase(p.TxManager, p.Accounts, p.Journal, p.Outbox, p.Audit, opts.IDGen, opts.RefGen, opts.Metrics)
	s.Posting = usecase.NewPostingUseCase(usecase.PostingDeps{
		TxManager: p.TxManager,
		Journal:   s.Journal,
		Accounts:  p.Accounts,
		Settings:  p.Settings,
		Stores:    p.Stores,
		Orders:    p.Orders,
		Refunds:   p.Refunds,
		Payouts:   p.Payouts,
		IDGen:     opts.IDGen,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
	s.Reconciliation = usecase.NewReconciliationUseCase(usecase.ReconciliationDeps{
		TxManager: p.TxManager,
		Matches:   p.Reconciliation,
		Payouts:   p.Payouts,
		Orders:    p.Orders,
		Accounts:  p.Accounts,
		Settings:  p.Settings,
		Outbox:    p.Outbox,
		Audit:     p.Audit,
		Retrier:   p.Retrier,
		IDGen:     opts.IDGen,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
	s.Reference = usecase.NewReferenceDataUseCase(usecase.ReferenceDataDeps{
		Stores:      p.Stores,
		Accounts:    p.Accounts,
		Documents:   p.Documents,
		Rates:       p.Rates,
		Budgets:     p.Budgets,
		Inventory:   p.Inventory,
		FixedAssets: p.FixedAssets,
		Settings:    p.Settings,
		Cache:       opts.Cache,
		IDGen:       opts.IDGen,
		Logger:      opts.Logger,
	})
	s.Reports = usecase.NewReportUseCase(p.TxManager, usecase.ReportRepositories{
		Accounts:    p.Accounts,
		Balances:    p.Balances,
		Stores:      p.Stores,
		Orders:      p.Orders,
		Refunds:     p.Refunds,
		Documents:   p.Documents,
		Rates:       p.Rates,
		Budgets:     p.Budgets,
		Inventory:   p.Inventory,
		FixedAssets: p.FixedAssets,
		Audit:       p.Audit,
	}, opts.Cache, opts.Logger, opts.Metrics)
	s.Dashboard = usecase.NewDashboardUseCase(s.Reports, s.Reconciliation)
	s.Ledger = usecase.NewLedgerUseCase(p.Ledger)
	return s
}

// Storage is an opened storage driver.
type Storage struct {
	Ports Ports
	// Pool is nil for the sqlite driver.
	Pool *pgxpool.Pool
	// SQLite is nil for the postgres driver.
	SQLite *sqlite.Store
}

// Close releases the driver's connections.
func (s *Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.SQLite != nil {
		_ = s.SQLite.Close()
	}
}

// OpenStorage opens the driver cfg names, migrating Postgres first when
// AUTO_MIGRATE is set.
func OpenStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.SQLitePath == "" {
			logger.Warn().Msg("SQLITE_PATH is empty; using a temporary database that is removed on exit")
		} else {
			logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")
		}
		return &Storage{Ports: SQLitePorts(db), SQLite: db}, nil

	case config.StoragePostgres:
		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				return nil, err
			}
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.DatabaseMaxConns,
			MinConns:    cfg.DatabaseMinConns,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to postgres")

		return &Storage{
			Ports: PostgresPorts(pool, postgresRepo.NewULIDGenerator(), logging.New(logger)),
			Pool:  pool,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ConnectRedis connects to REDIS_URL. It returns a nil client when Redis is
// not configured.
func ConnectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*goredis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("redis not configured; cache, idempotency and queue are disabled")
		return nil, nil
	}

	client, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL})
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to redis")
	return client, nil
}

// ReportCache returns the Redis report cache, or nil when caching is off.
func ReportCache(client *goredis.Client, cfg *config.Config, logger zerolog.Logger) usecase.ReportCache {
	if client == nil || !cfg.CacheEnabled() {
		return nil
	}
	return redisRepo.NewReportCache(client, cfg.ReportCacheTTL, logger)
}
