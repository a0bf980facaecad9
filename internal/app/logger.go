package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the configured slog.Logger. Production runs emit JSON
// with source locations for aggregation; development keeps the text
// handler readable. Every record carries the service name so gateway and
// worker logs can be told apart in a shared stream.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With(slog.String("service", "martdesk"))
}
