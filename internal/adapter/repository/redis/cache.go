package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultReportTTL bounds how long a cached report lives even when no write
// invalidates it.
const DefaultReportTTL = 10 * time.Minute

// ReportCache implements usecase.ReportCache using Redis. Keys embed a
// generation counter, so Invalidate is a single INCR and stale entries
// simply expire.
type ReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
	group  singleflight.Group
}

// NewReportCache creates a new ReportCache.
func NewReportCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &ReportCache{
		client: client,
		prefix: "cache:",
		ttl:    ttl,
		logger: logger.With().Str("component", "report_cache").Logger(),
	}
}

func (c *ReportCache) versionKey() string {
	return c.prefix + "version"
}

func (c *ReportCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Fetch fills dest from the cache, or from load on a miss. Concurrent misses
// for the same key share one load, which runs detached from any caller's
// cancellation. Redis failures degrade to calling load.
func (c *ReportCache) Fetch(ctx context.Context, key string, dest any, load func(context.Context) (any, error)) error {
	version, err := c.version(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache unavailable, computing report")
		return c.loadInto(ctx, dest, load)
	}

	fullKey := c.prefix + "v" + strconv.FormatInt(version, 10) + ":" + key

	cached, err := c.client.Get(ctx, fullKey).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(cached, dest); jsonErr == nil {
			return nil
		}
		c.logger.Warn().Str("key", fullKey).Msg("discarding unreadable cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, computing report")
		return c.loadInto(ctx, dest, load)
	}

	// The shared load outlives any single caller; each caller stops waiting
	// when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fullKey, func() (any, error) {
		result, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}

		if err := c.client.Set(loadCtx, fullKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", fullKey).Msg("cache write failed")
		}

		return data, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Invalidate bumps the generation so every cached report misses.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.versionKey()).Err()
}

func (c *ReportCache) loadInto(ctx context.Context, dest any, load func(context.Context) (any, error)) error {
	result, err := load(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}
