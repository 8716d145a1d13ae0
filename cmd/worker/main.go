package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/gobooks/internal/adapter/queue"
	"github.com/iho/gobooks/internal/app"
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Process: logger.ProcessWorker})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}

// checkConfig rejects settings the worker cannot run with.
func checkConfig(cfg *config.Config) error {
	if cfg.StorageDriver != config.StoragePostgres {
		return fmt.Errorf("the worker needs the postgres storage driver, got %q", cfg.StorageDriver)
	}
	if cfg.RedisURL == "" {
		return errors.New("the worker needs REDIS_URL")
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if err := checkConfig(cfg); err != nil {
		return err
	}

	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storage.Close()

	redisClient, err := app.ConnectRedis(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url for queue: %w", err)
	}

	m := metrics.New()
	redisClient.AddHook(infraredis.NewMetricsHook(m))

	cache := app.ReportCache(redisClient, cfg, log)
	services := app.NewServices(storage.Ports, app.Options{Cache: cache, Logger: log, Metrics: m})
	slogger := logging.New(log)

	worker := queue.NewWorker(queue.WorkerConfig{
		RedisOpt:    redisOpt,
		Poster:      services.Posting,
		Logger:      slogger,
		Concurrency: cfg.WorkerConcurrency,
	})

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: storage.Ports.Outbox,
		Publisher:  outboxPublisher(cache, redisClient, slogger),
		Logger:     slogger,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return publisher.Start(gctx) })
	g.Go(func() error {
		postgres.ObservePool(gctx, storage.Pool, m.DBConnections, 15*time.Second)
		return nil
	})

	if cfg.WorkerMetricsAddr != "" {
		srv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info().Str("addr", cfg.WorkerMetricsAddr).Msg("serving worker metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

// outboxPublisher invalidates cached reports first, then broadcasts.
func outboxPublisher(cache usecase.ReportCache, client *goredis.Client, slogger *slog.Logger) eventpublisher.FanOut {
	var publishers eventpublisher.FanOut
	if cache != nil {
		publishers = append(publishers, eventpublisher.NewCacheInvalidator(cache))
	}
	if client != nil {
		publishers = append(publishers, eventpublisher.NewRedisPublisher(client, eventpublisher.DefaultChannel))
	}
	return append(publishers, eventpublisher.NewLogPublisher(slogger))
}
