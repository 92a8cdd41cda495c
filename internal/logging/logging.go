package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Handler formats accepted by Init.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Init creates and sets the package-level default slog logger on stderr.
// Use JSON when stdout carries NDJSON predictions so the streams stay
// machine-separable; text is friendlier on a terminal.
func Init(format string, level slog.Level) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, format, level))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns a JSON handler for "json" and a text handler for
// anything else.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatJSON) {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
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
