package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// startRedis runs an in-process Redis for one test. The server and the client
// are closed when the test ends.
func startRedis(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

// newTestCache returns a report cache with a one-minute TTL on a fresh server.
func newTestCache(t *testing.T) (*ReportCache, *miniredis.Miniredis) {
	t.Helper()

	client, mr := startRedis(t)
	return NewReportCache(client, time.Minute, zerolog.Nop()), mr
}

// newTestIdempotency returns an idempotency store and the client behind it,
// for tests that inspect raw keys.
func newTestIdempotency(t *testing.T) (*IdempotencyStore, *redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	client, mr := startRedis(t)
	return NewIdempotencyStore(client), client, mr
}
