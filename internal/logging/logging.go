// Package logging installs a zerolog-backed handler as the default slog
// logger. Call sites keep logging through log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, format and destination of log output
type Config struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string
	// Format is json or console. Default: console
	Format string
	// Output defaults to os.Stderr
	Output io.Writer
}

// Init builds a zerolog logger from cfg and installs it as slog's default.
// It returns the logger for callers that want it directly.
func Init(cfg Config) *slog.Logger {
	logger := slog.New(NewSlogHandler(newZerolog(cfg)))
	slog.SetDefault(logger)
	return logger
}

func newZerolog(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.ToLower(cfg.Format) != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to zerolog, falling back to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
