package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultClientName = "gobooks"

// Config configures the Redis client shared by the report cache, the
// idempotency store and the task queue. Zero values keep what REDIS_URL says.
type Config struct {
	URL         string
	PoolSize    int
	DialTimeout time.Duration
	ClientName  string
}

// NewClient parses REDIS_URL, applies overrides and pings the server before
// handing the client out.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	opts.ClientName = cfg.ClientName
	if opts.ClientName == "" {
		opts.ClientName = defaultClientName
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
