package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// Poster records commerce events. *usecase.PostingUseCase satisfies it.
type Poster interface {
	RecordOrderPaid(ctx context.Context, input usecase.OrderPaidInput) (*usecase.PostingResult, error)
	RecordRefund(ctx context.Context, input usecase.RefundInput) (*usecase.PostingResult, error)
	RecordPayout(ctx context.Context, input usecase.PayoutInput) (*usecase.PostingResult, error)
	RecordCOGS(ctx context.Context, input usecase.COGSInput) (*usecase.PostingResult, error)
}

// NewServeMux routes every commerce task type to poster.
func NewServeMux(poster Poster) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskOrderPaid, handle(poster.RecordOrderPaid))
	mux.HandleFunc(TaskRefund, handle(poster.RecordRefund))
	mux.HandleFunc(TaskPayout, handle(poster.RecordPayout))
	mux.HandleFunc(TaskCOGS, handle(poster.RecordCOGS))
	return mux
}

func handle[T any](record func(context.Context, T) (*usecase.PostingResult, error)) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var input T
		if err := json.Unmarshal(t.Payload(), &input); err != nil {
			return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		_, err := record(ctx, input)
		switch {
		case err == nil, errors.Is(err, domain.ErrDuplicateReference):
			return nil
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnbalancedEntry):
			return fmt.Errorf("%s rejected: %w: %w", t.Type(), err, asynq.SkipRetry)
		default:
			return err
		}
	}
}

// WorkerConfig collects what the worker needs to start.
type WorkerConfig struct {
	RedisOpt    asynq.RedisConnOpt
	Poster      Poster
	Logger      *slog.Logger
	Concurrency int
}

// Worker processes commerce tasks until its context ends.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	logger := cfg.Logger.With(slog.String("component", "worker"))
	srv := asynq.NewServer(cfg.RedisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{QueueCommerce: 1},
		Logger:      &slogAdapter{logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.WarnContext(ctx, "commerce task failed",
				slog.String("type", task.Type()),
				slog.Int("retried", retried),
				slog.String("error", err.Error()))
		}),
	})

	return &Worker{server: srv, mux: NewServeMux(cfg.Poster), logger: logger}
}

// Run starts processing and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.logger.Info("worker started", slog.String("queue", QueueCommerce))

	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("worker stopped")
	return ctx.Err()
}

// slogAdapter satisfies asynq.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(args ...any) { a.logger.Debug(fmt.Sprint(args...)) }
func (a *slogAdapter) Info(args ...any)  { a.logger.Info(fmt.Sprint(args...)) }
func (a *slogAdapter) Warn(args ...any)  { a.logger.Warn(fmt.Sprint(args...)) }
func (a *slogAdapter) Error(args ...any) { a.logger.Error(fmt.Sprint(args...)) }

func (a *slogAdapter) Fatal(args ...any) {
	a.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
