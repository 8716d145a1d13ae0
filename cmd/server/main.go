package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/gobooks/internal/adapter/http"
	"github.com/iho/gobooks/internal/adapter/http/handler"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/adapter/queue"
	redisRepo "github.com/iho/gobooks/internal/adapter/repository/redis"
	"github.com/iho/gobooks/internal/app"
	"github.com/iho/gobooks/internal/infrastructure/auth"
	"github.com/iho/gobooks/internal/infrastructure/config"
	"github.com/iho/gobooks/internal/infrastructure/eventpublisher"
	"github.com/iho/gobooks/internal/infrastructure/logger"
	"github.com/iho/gobooks/internal/infrastructure/logging"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
	"github.com/iho/gobooks/internal/infrastructure/postgres"
	infraredis "github.com/iho/gobooks/internal/infrastructure/redis"
	"github.com/iho/gobooks/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Process: logger.ProcessServer})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storage.Close()

	redisClient, err := app.ConnectRedis(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	if redisClient != nil {
		redisClient.AddHook(infraredis.NewMetricsHook(m))
	}
	cache := app.ReportCache(redisClient, cfg, log)
	services := app.NewServices(storage.Ports, app.Options{Cache: cache, Logger: log, Metrics: m})

	var idempotencyStore usecase.IdempotencyStore
	var eventQueue usecase.EventQueue
	if redisClient != nil {
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)

		// The worker posts into Postgres; a sqlite ledger belongs to this process.
		if storage.Pool != nil {
			redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("parse redis url for queue: %w", err)
			}
			client := queue.NewClient(redisOpt)
			defer client.Close()
			eventQueue = client
		}
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(services.Accounts, services.Balances),
		JournalHandler:        handler.NewJournalHandler(services.Journal),
		ReportHandler:         handler.NewReportHandler(services.Reports, services.Dashboard),
		ReconciliationHandler: handler.NewReconciliationHandler(services.Reconciliation),
		IngestHandler:         handler.NewIngestHandler(services.Posting, eventQueue),
		ReferenceHandler:      handler.NewReferenceHandler(services.Reference),
		LedgerHandler:         handler.NewLedgerHandler(services.Ledger),
		HealthHandler:         handler.NewHealthHandler(healthChecks(storage.Pool, redisClient)),
		TokenVerifier:         tokenVerifier(cfg),
		Metrics:               m,
		Logger:                log,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           rateLimiter,
		IngestPerMinute:       cfg.IngestRatePerMinute,
		RequestTimeout:        cfg.HTTPRequestTimeout,
		Development:           cfg.StorageDriver == config.StorageSQLite && cfg.SQLitePath == "",
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		rateLimiter.RunCleanup(gctx, 5*time.Minute)
		return nil
	})

	if storage.Pool != nil {
		g.Go(func() error {
			postgres.ObservePool(gctx, storage.Pool, m.DBConnections, 15*time.Second)
			return nil
		})
	}

	// With Postgres the worker relays the outbox; a sqlite outbox is relayed here.
	if storage.Pool == nil {
		publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: storage.Ports.Outbox,
			Publisher:  outboxPublisher(cache, log),
			Logger:     logging.New(logger.Component(log, "outbox_relay")),
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxPollInterval,
			Retention:  cfg.OutboxRetention,
		})
		g.Go(func() error {
			if err := publisher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// tokenVerifier returns the JWT verifier, or nil when authentication is off.
func tokenVerifier(cfg *config.Config) middleware.TokenVerifier {
	if !cfg.AuthEnabled {
		return nil
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
}

// healthChecks lists the dependencies readiness depends on.
func healthChecks(pool *pgxpool.Pool, redisClient *goredis.Client) map[string]handler.Pinger {
	checks := make(map[string]handler.Pinger)
	if pool != nil {
		checks["postgres"] = pool
	}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	return checks
}

func outboxPublisher(cache usecase.ReportCache, log zerolog.Logger) eventpublisher.Publisher {
	publishers := eventpublisher.FanOut{eventpublisher.NewLogPublisher(logging.New(log))}
	if cache != nil {
		publishers = append(publishers, eventpublisher.NewCacheInvalidator(cache))
	}
	return publishers
}
