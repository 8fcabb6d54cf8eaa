package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Debug logging covers the
// per-submission processing trail and is noisy; keep it off in production
// unless chasing a webhook problem.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
