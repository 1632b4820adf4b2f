package logging

import (
	"context"
	"errors"
	"log/slog"
)

// sinkHandler is one filtered sink inside the dispatcher.
type sinkHandler struct {
	kind    SinkKind
	handler slog.Handler
}

// Dispatcher fans records out to every installed sink. Each sink applies its
// own filter; the sink list never changes after construction.
type Dispatcher struct {
	sinks   []sinkHandler
	metrics *pipelineMetrics
}

func newDispatcher(metrics *pipelineMetrics, sinks ...sinkHandler) *Dispatcher {
	return &Dispatcher{sinks: sinks, metrics: metrics}
}

// Sinks returns the installed sink kinds in dispatch order.
func (d *Dispatcher) Sinks() []SinkKind {
	kinds := make([]SinkKind, len(d.sinks))
	for i, s := range d.sinks {
		kinds[i] = s.kind
	}
	return kinds
}

// Enabled implements slog.Handler.
func (d *Dispatcher) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range d.sinks {
		if s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler. Every admitting sink is attempted even if
// an earlier one fails.
func (d *Dispatcher) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range d.sinks {
		if !s.handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
			continue
		}
		d.metrics.recorded(s.kind, r.Level)
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (d *Dispatcher) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]sinkHandler, len(d.sinks))
	for i, s := range d.sinks {
		sinks[i] = sinkHandler{kind: s.kind, handler: s.handler.WithAttrs(attrs)}
	}
	return &Dispatcher{sinks: sinks, metrics: d.metrics}
}

// WithGroup implements slog.Handler.
func (d *Dispatcher) WithGroup(name string) slog.Handler {
	if name == "" {
		return d
	}
	sinks := make([]sinkHandler, len(d.sinks))
	for i, s := range d.sinks {
		sinks[i] = sinkHandler{kind: s.kind, handler: s.handler.WithGroup(name)}
	}
	return &Dispatcher{sinks: sinks, metrics: d.metrics}
}
