package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds the process logger: JSON to stdout, debug level in dev,
// and trace/span ids attached whenever a span is active on the context.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if env == "dev" {
		opts.Level = slog.LevelDebug
	}

	return slog.New(&spanAwareHandler{next: slog.NewJSONHandler(os.Stdout, opts)})
}

// spanAwareHandler decorates records with the ids of the active span so log
// lines can be joined with traces.
type spanAwareHandler struct {
	next slog.Handler
}

func (h *spanAwareHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *spanAwareHandler) Handle(ctx context.Context, rec slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return h.next.Handle(ctx, rec)
}

func (h *spanAwareHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanAwareHandler{next: h.next.WithAttrs(attrs)}
}

func (h *spanAwareHandler) WithGroup(name string) slog.Handler {
	return &spanAwareHandler{next: h.next.WithGroup(name)}
}
