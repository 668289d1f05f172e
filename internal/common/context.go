package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID    contextKey = "run_id"
	ContextKeyFilename contextKey = "filename"
)

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithFilename adds the document filename being processed to the context
func WithFilename(ctx context.Context, filename string) context.Context {
	return context.WithValue(ctx, ContextKeyFilename, filename)
}

// FilenameFromContext extracts the document filename from context
func FilenameFromContext(ctx context.Context) string {
	if filename, ok := ctx.Value(ContextKeyFilename).(string); ok {
		return filename
	}
	return ""
}

// LoggerFrom returns base enriched with the run ID and filename found in ctx.
func LoggerFrom(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		base = base.With("run_id", id)
	}
	if name := FilenameFromContext(ctx); name != "" {
		base = base.With("filename", name)
	}
	return base
}
