// Package analytics records product analytics events such as installs and uninstalls of
// integrations. Events are structured log lines plus a per-event counter; shipping them to a
// warehouse is left to the log pipeline.
package analytics

import (
	"context"
	"log/slog"
	"sort"

	"github.com/trailkeeper/trailkeeper/internal/telemetry"
)

// Attrs are the attributes attached to one analytics event
type Attrs map[string]interface{}

// Recorder records analytics events
type Recorder interface {
	Record(ctx context.Context, name string, attrs Attrs)
}

// LogRecorder writes each event as an info log line and counts it in analytics_events_total
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a recorder writing to logger, or to the default logger when nil
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record logs the event and increments its counter
func (r *LogRecorder) Record(ctx context.Context, name string, attrs Attrs) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)+1)
	args = append(args, slog.String("event", name))
	for _, k := range keys {
		args = append(args, slog.Any(k, attrs[k]))
	}

	logger.InfoContext(ctx, "analytics event", args...)
	telemetry.AnalyticsEventsTotal.WithLabelValues(name).Inc()
}

// Nop discards events
type Nop struct{}

// Record does nothing
func (Nop) Record(context.Context, string, Attrs) {}
