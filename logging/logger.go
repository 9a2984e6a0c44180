// Package logging builds the structured logger the rest of the service
// shares. Level and format come from configuration; output goes to stderr.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a slog.Logger at the given level ("debug", "info", "warn",
// "error") in the given format ("text" or "json"). Unknown values fall
// back to info-level text output.
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
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
