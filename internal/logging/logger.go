// Package logging builds the application's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const levelEnvVar = "COVERHUE_LOG_LEVEL"

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
}

// New creates a logger writing to stderr.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

func NewWithWriter(cfg Config, writer io.Writer) *slog.Logger {
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.Level <= slog.LevelDebug,
		}))
	}

	return slog.New(tint.NewHandler(writer, &tint.Options{
		Level:      cfg.Level,
		AddSource:  cfg.Level <= slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}

// ParseLevel maps DEBUG, INFO, WARN/WARNING and ERROR (any case) to a slog level.
// Unknown values fall back to INFO.
func ParseLevel(value string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigFrom builds a Config from a configured level and format. The
// COVERHUE_LOG_LEVEL environment variable overrides the configured level.
func ConfigFrom(level string, format string) Config {
	if envLevel := os.Getenv(levelEnvVar); envLevel != "" {
		level = envLevel
	}
	if format == "" {
		format = "text"
	}
	return Config{Level: ParseLevel(level), Format: format}
}
