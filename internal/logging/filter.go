package logging

import (
	"context"
	"log/slog"
)

// FilterHandle is a live handle on one installed sink's minimum level.
// It may be copied and shared; every copy updates the same cell.
type FilterHandle struct {
	sink    SinkKind
	level   *slog.LevelVar
	metrics *pipelineMetrics
}

func newFilterHandle(sink SinkKind, level slog.Level, metrics *pipelineMetrics) *FilterHandle {
	lv := &slog.LevelVar{}
	lv.Set(level)
	return &FilterHandle{sink: sink, level: lv, metrics: metrics}
}

// Sink returns the sink this handle is bound to.
func (h *FilterHandle) Sink() SinkKind {
	return h.sink
}

// Level returns the current threshold.
func (h *FilterHandle) Level() slog.Level {
	if h == nil || h.level == nil {
		return LevelTrace
	}
	return h.level.Level()
}

// SetLevel atomically replaces the threshold.
func (h *FilterHandle) SetLevel(level slog.Level) error {
	if h == nil || h.level == nil {
		return ErrHandleDetached
	}
	h.level.Set(level)
	h.metrics.reloaded(h.sink)
	return nil
}

// filteredHandler gates an inner handler on a shared, swappable level.
type filteredHandler struct {
	inner slog.Handler
	level *slog.LevelVar
}

func newFilteredHandler(inner slog.Handler, handle *FilterHandle) *filteredHandler {
	return &filteredHandler{inner: inner, level: handle.level}
}

// Enabled implements slog.Handler.
func (f *filteredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= f.level.Level() && f.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (f *filteredHandler) Handle(ctx context.Context, r slog.Record) error {
	return f.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (f *filteredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteredHandler{inner: f.inner.WithAttrs(attrs), level: f.level}
}

// WithGroup implements slog.Handler.
func (f *filteredHandler) WithGroup(name string) slog.Handler {
	return &filteredHandler{inner: f.inner.WithGroup(name), level: f.level}
}
