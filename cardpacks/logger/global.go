package logger

import (
	"log/slog"
	"time"
)

// LogDraw logs a pack draw
func LogDraw(pack string, username string, count int, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "draw"),
		slog.String("pack", pack),
		slog.String("username", username),
		slog.Int("count", count),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Draw failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Draw completed", attrs...)
	}
}

// LogQuery logs database operations
func LogQuery(query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs,
			slog.String("query", query),
			slog.Any("error", err),
		)...)
	} else {
		slog.Debug("Query executed", append(attrs,
			slog.String("query", query),
		)...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
