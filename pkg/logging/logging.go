// Package logging configures the process-wide slog logger.
//
// Pretty output uses tint for colored, human friendly lines; json output is
// meant for log shippers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New builds a logger writing to stderr and installs it as the slog default
func New(level, format string) *slog.Logger {
	logger := NewWithWriter(os.Stderr, level, format)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter builds a logger for w without touching the slog default
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: true}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	}))
}

// ParseLevel maps debug, info, warn and error; anything else is info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
