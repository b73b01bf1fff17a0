package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Logger interface {
	Info(msg string, keyvals ...interface{})

	Warn(msg string, keyvals ...interface{})

	Error(msg string, keyvals ...interface{})

	Debug(msg string, keyvals ...interface{})
}

func New() Logger {
	return NewWithLevel(os.Getenv("LOG_LEVEL"))
}

// NewWithLevel builds a JSON logger on stderr; unknown levels fall back to info.
func NewWithLevel(level string) Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true, // include file + line number
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
