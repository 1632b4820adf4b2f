package logging

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "starter"
	metricsSubsystem = "logging"
)

// pipelineMetrics holds the collectors for one pipeline. Collectors always
// exist so the hot path never checks for nil; registration is optional.
type pipelineMetrics struct {
	records *prometheus.CounterVec
	reloads *prometheus.CounterVec
}

func newPipelineMetrics() *pipelineMetrics {
	return &pipelineMetrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "records_total",
			Help:      "Records rendered by each sink, by level.",
		}, []string{"sink", "level"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "filter_reloads_total",
			Help:      "Threshold updates applied to each sink filter.",
		}, []string{"sink"}),
	}
}

func (m *pipelineMetrics) recorded(sink SinkKind, level slog.Level) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(sink.String(), LevelName(level)).Inc()
}

func (m *pipelineMetrics) reloaded(sink SinkKind) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(sink.String()).Inc()
}

// register adds the pipeline collectors plus per-sink gauges for the live
// thresholds and, when a file sink exists, its dropped line count.
func (m *pipelineMetrics) register(reg prometheus.Registerer, handles []*FilterHandle, guard *WorkerGuard) error {
	collectors := []prometheus.Collector{m.records, m.reloads}

	for _, h := range handles {
		handle := h
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "sink_threshold",
			Help:        "Current minimum level of the sink filter.",
			ConstLabels: prometheus.Labels{"sink": handle.Sink().String()},
		}, func() float64 {
			return float64(handle.Level())
		}))
	}

	if guard != nil {
		collectors = append(collectors, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "dropped_records_total",
			Help:        "Lines dropped by the non-blocking file writer.",
			ConstLabels: prometheus.Labels{"sink": SinkFile.String()},
		}, func() float64 {
			return float64(guard.Dropped())
		}))
	}

	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return err
		}
	}
	return nil
}
