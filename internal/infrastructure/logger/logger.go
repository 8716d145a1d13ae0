// Package logger builds the root zerolog logger for the gobooks processes.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const service = "gobooks"

// Process names tag every line with the binary that wrote it.
const (
	ProcessServer = "server"
	ProcessWorker = "worker"
)

// Config mirrors the LOG_* settings.
type Config struct {
	Level   string
	Format  string // "json" or "console"
	Process string
	Output  io.Writer
}

// New returns the root logger. Lines carry the service and process names so
// the server, worker and CLI can share one log stream.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.Output != nil}
	}

	ctx := zerolog.New(out).Level(Level(cfg.Level)).With().Timestamp().Str("service", service)
	if cfg.Process != "" {
		ctx = ctx.Str("process", cfg.Process)
	}
	return ctx.Caller().Logger()
}

// Level parses LOG_LEVEL. Empty or unrecognised values log at info.
func Level(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component derives the logger a subsystem writes through.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
