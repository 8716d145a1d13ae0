package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testReport struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

func countingLoad(calls *atomic.Int32, total string) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return &testReport{Name: "pl", Total: decimal.RequireFromString(total)}, nil
	}
}

func TestReportCacheHitAfterMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	var first testReport
	require.NoError(t, cache.Fetch(ctx, "report:pl", &first, countingLoad(&calls, "10.50")))

	var second testReport
	require.NoError(t, cache.Fetch(ctx, "report:pl", &second, countingLoad(&calls, "99")))

	require.Equal(t, int32(1), calls.Load())
	require.True(t, second.Total.Equal(decimal.RequireFromString("10.50")))
	require.Equal(t, first.Name, second.Name)
}

func TestReportCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	var r testReport
	require.NoError(t, cache.Fetch(ctx, "report:pl", &r, countingLoad(&calls, "1")))
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Fetch(ctx, "report:pl", &r, countingLoad(&calls, "2")))

	require.Equal(t, int32(2), calls.Load())
	require.True(t, r.Total.Equal(decimal.NewFromInt(2)))
}

func TestReportCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	var r testReport
	require.NoError(t, cache.Fetch(ctx, "report:bs", &r, countingLoad(&calls, "1")))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, cache.Fetch(ctx, "report:bs", &r, countingLoad(&calls, "1")))

	require.Equal(t, int32(2), calls.Load())
}

func TestReportCacheLoadErrorIsNotCached(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("snapshot failed")

	var r testReport
	err := cache.Fetch(ctx, "report:tb", &r, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	var calls atomic.Int32
	require.NoError(t, cache.Fetch(ctx, "report:tb", &r, countingLoad(&calls, "3")))
	require.Equal(t, int32(1), calls.Load())
}

func TestReportCacheFallsBackWhenRedisIsDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	var calls atomic.Int32

	var r testReport
	require.NoError(t, cache.Fetch(context.Background(), "report:pl", &r, countingLoad(&calls, "7")))
	require.Equal(t, int32(1), calls.Load())
	require.True(t, r.Total.Equal(decimal.NewFromInt(7)))
}

func TestReportCacheCollapsesConcurrentMisses(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return &testReport{Name: "slow"}, nil
	}

	const callers = 5
	results := make([]testReport, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = cache.Fetch(ctx, "report:slow", &results[i], load)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, "slow", results[i].Name)
	}
	require.Less(t, calls.Load(), int32(callers))
}

func TestReportCacheCancelledCallerDoesNotFailOthers(t *testing.T) {
	cache, _ := newTestCache(t)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &testReport{Name: "shared", Total: decimal.NewFromInt(42)}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		var r testReport
		firstErr <- cache.Fetch(firstCtx, "report:bs", &r, load)
	}()
	<-started

	secondErr := make(chan error, 1)
	var second testReport
	go func() {
		secondErr <- cache.Fetch(context.Background(), "report:bs", &second, load)
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(release)
	require.NoError(t, <-secondErr)
	require.Equal(t, "shared", second.Name)
	require.True(t, second.Total.Equal(decimal.NewFromInt(42)))
	require.Equal(t, int32(1), calls.Load())

	var cached testReport
	require.NoError(t, cache.Fetch(context.Background(), "report:bs", &cached, load))
	require.Equal(t, "shared", cached.Name)
	require.Equal(t, int32(1), calls.Load())
}
