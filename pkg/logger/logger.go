package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global logger based on the environment and a
// log-filter level name, then installs it as the default global logger.
func Setup(env, logFilter string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLevel(logFilter),
	}

	if env == "production" {
		// JSON for machine parsing (Datadog, Splunk, etc.)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "ferriskey")
	slog.SetDefault(logger)

	return logger
}

func parseLevel(filter string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
