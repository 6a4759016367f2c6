// Package logger configures the process-wide slog logger.
package logger

import (
	"log/slog"
	"os"

	"github.com/behindy-dev/storyserver/internal/config"
)

// Setup builds the root logger and installs it as the slog default.
// Production gets JSON output for log aggregation; everything else
// gets human-readable text.
func Setup(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "storyserver")
	slog.SetDefault(logger)
	return logger
}
