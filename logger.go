package hitomi

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with hitomi-specific helpers so that all
// operations log with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler to stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// LogSearch logs a gallery id resolution.
func (l *Logger) LogSearch(ctx context.Context, words, tags, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"title_words", words,
			"tags", tags,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"title_words", words,
			"tags", tags,
			"results", results,
		)
	}
}

// LogSynchronize logs an image shard configuration sync.
func (l *Logger) LogSynchronize(ctx context.Context, pathCode string, buckets int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "shard sync failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "shard sync completed",
			"path_code", pathCode,
			"buckets", buckets,
		)
	}
}

// LogGallery logs a gallery metadata fetch.
func (l *Logger) LogGallery(ctx context.Context, id int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "gallery fetch failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "gallery fetched",
			"id", id,
		)
	}
}
