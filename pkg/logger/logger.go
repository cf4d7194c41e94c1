package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Set returns a copy of `ctx` carrying `l`.
func Set(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Get returns the logger carried by `ctx`, falling back to the default
// logger.
func Get(ctx context.Context) (l *slog.Logger) {
	if v := ctx.Value(loggerKey); v != nil {
		if l, _ = v.(*slog.Logger); l != nil {
			return
		}
	}
	l = slog.Default()
	return
}

// New builds a JSON logger on stderr at `level` ("debug", "info", "warn" or
// "error"). Unknown levels log at info.
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(
		os.Stderr,
		&slog.HandlerOptions{Level: ParseLevel(level)},
	))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type loggerKeyType string

const loggerKey loggerKeyType = "loggerKey"
