package config_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iho/gobooks/internal/infrastructure/config"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "DATABASE_URL", "JWT_SECRET", "STORAGE_DRIVER", "HTTP_PORT", "REPORT_CACHE_TTL", "AUTH_ENABLED", "DEFAULT_CURRENCY")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.JWTSecret != "" {
		t.Fatalf("expected JWT secret default to be empty, got %q", cfg.JWTSecret)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.StorageDriver != config.StoragePostgres || cfg.ReportCacheTTL != 10*time.Minute {
		t.Fatalf("unexpected storage defaults: driver=%s ttl=%s", cfg.StorageDriver, cfg.ReportCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/var/lib/gobooks/ledger.db")
	t.Setenv("WORKER_CONCURRENCY", "12")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}

	if cfg.StorageDriver != config.StorageSQLite || cfg.SQLitePath != "/var/lib/gobooks/ledger.db" || cfg.WorkerConcurrency != 12 {
		t.Fatalf("expected storage and worker overrides, got %s/%d", cfg.StorageDriver, cfg.WorkerConcurrency)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			StorageDriver:      config.StoragePostgres,
			DatabaseURL:        "postgres://example",
			RedisURL:           "redis://example",
			ReportCacheEnabled: true,
			ReportCacheTTL:     time.Minute,
			DefaultCurrency:    "USD",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"unknown driver", func(c *config.Config) { c.StorageDriver = "mysql" }, "STORAGE_DRIVER"},
		{"zero cache ttl", func(c *config.Config) { c.ReportCacheTTL = 0 }, "REPORT_CACHE_TTL"},
		{"zero ttl without redis", func(c *config.Config) { c.ReportCacheTTL = 0; c.RedisURL = "" }, ""},
		{"auth without secret", func(c *config.Config) { c.AuthEnabled = true }, "JWT_SECRET"},
		{"sqlite needs no database url", func(c *config.Config) { c.StorageDriver = config.StorageSQLite; c.DatabaseURL = "" }, ""},
		{"bad currency", func(c *config.Config) { c.DefaultCurrency = "DOLLARS" }, "DEFAULT_CURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
