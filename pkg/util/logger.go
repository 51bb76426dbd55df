package util

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Development gets human readable text at debug
// level; every other environment logs JSON at info.
func NewLogger(env, component string) *slog.Logger {
	return newLogger(os.Stdout, env).With("component", component)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// DiscardLogger returns a logger that drops everything below error, for tests.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
