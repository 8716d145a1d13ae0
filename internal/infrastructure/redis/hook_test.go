package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

func TestMetricsHook(t *testing.T) {
	s := miniredis.RunT(t)

	ctx := context.Background()
	client, err := NewClient(ctx, Config{URL: fmt.Sprintf("redis://%s", s.Addr())})
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	defer client.Close()

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	client.AddHook(NewMetricsHook(m))

	if err := client.Set(ctx, "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = client.Get(ctx, "missing").Err()

	if got := testutil.ToFloat64(m.RedisOperations.WithLabelValues("set")); got != 1 {
		t.Fatalf("expected 1 set, got %v", got)
	}
	if got := testutil.ToFloat64(m.RedisOperations.WithLabelValues("get")); got != 1 {
		t.Fatalf("expected 1 get, got %v", got)
	}
	if got := testutil.ToFloat64(m.RedisErrors.WithLabelValues("get")); got != 0 {
		t.Fatalf("a miss is not an error, got %v", got)
	}

	s.SetError("ERR boom")
	_ = client.Get(ctx, "k").Err()
	if got := testutil.ToFloat64(m.RedisErrors.WithLabelValues("get")); got != 1 {
		t.Fatalf("expected 1 get error, got %v", got)
	}
}
