package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL string onto a slog level, defaulting to info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
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

// NewLogger creates a text logger writing to w at the given level
func NewLogger(w io.Writer, logLevel string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})
	return slog.New(handler)
}

// SetupLogging configures the global slog handler based on log level.
// Call it once at startup, before any component grabs slog.Default().
func SetupLogging(logLevel string) {
	slog.SetDefault(NewLogger(os.Stdout, logLevel))
}

// Discard returns a logger that drops everything. Tests use it to keep output quiet.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
