package ssfcm

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with clustering-specific helpers so that every
// run logs the same field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler writing to stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that writes JSON records to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithRunID tags every record with the run identifier.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("run_id", id)}
}

// WithClusters tags every record with the cluster count.
func (l *Logger) WithClusters(k int) *Logger {
	return &Logger{Logger: l.Logger.With("clusters", k)}
}

// LogIteration logs the metrics of a completed iteration.
func (l *Logger) LogIteration(ctx context.Context, iteration int, shift, loss, db, aswc float64) {
	l.DebugContext(ctx, "iteration completed",
		"iteration", iteration,
		"shift", shift,
		"loss", loss,
		"davies_bouldin", db,
		"aswc", aswc,
	)
}

// LogSolveFailure logs a per-point root-finding failure. The run continues.
func (l *Logger) LogSolveFailure(ctx context.Context, equation string, point, cluster, iteration int) {
	l.WarnContext(ctx, "root solve failed, keeping previous value",
		"equation", equation,
		"point", point,
		"cluster", cluster,
		"iteration", iteration,
	)
}

// LogNegativeDistance logs a negative min-max normalized field distance.
func (l *Logger) LogNegativeDistance(ctx context.Context, field, point, centroid int, value float64) {
	l.WarnContext(ctx, "negative normalized distance",
		"field", field,
		"point", point,
		"centroid", centroid,
		"value", value,
	)
}

// LogRunFinished logs the end of a clustering run.
func (l *Logger) LogRunFinished(ctx context.Context, iterations int, converged bool, solveFailures int) {
	l.InfoContext(ctx, "clustering finished",
		"iterations", iterations,
		"converged", converged,
		"solve_failures", solveFailures,
	)
}
