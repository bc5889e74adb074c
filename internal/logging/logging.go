// Package logging constructs the gateway's structured logger from
// Config and derives request/session-scoped child loggers from it.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mira-ai/sentinel/internal/config"
)

// New builds a slog.Logger per cfg: "json" or "text" handler, level
// parsed from cfg.Level, writing to stdout.
func New(cfg config.LoggingConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// WithSession returns a child logger tagging every record with the
// session id, for handing to per-turn collaborators.
func WithSession(log *slog.Logger, sessionID string) *slog.Logger {
	return log.With("session_id", sessionID)
}

// WithJob returns a child logger tagging every record with a cron
// job id.
func WithJob(log *slog.Logger, jobID string) *slog.Logger {
	return log.With("job_id", jobID)
}
