// Package logging installs the process-wide slog default.
package logging

import (
	"log/slog"
	"os"
)

// Init configures the default logger from the environment. LOG_LEVEL
// selects verbosity (errors only when unset, so the CLI's chat output
// stays clean); LOG_FORMAT=json switches to JSON lines for the relay
// server behind a log collector.
func Init() {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
