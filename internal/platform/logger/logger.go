package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger: JSON to stdout, info level. Services take
// a *slog.Logger so tests can hand them a discard handler instead.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
