package logging

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterReloadCounter(t *testing.T) {
	m := newPipelineMetrics()
	h := newFilterHandle(SinkJournal, LevelInfo, m)

	require.NoError(t, h.SetLevel(LevelDebug))
	require.NoError(t, h.SetLevel(LevelError))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reloads.WithLabelValues("journal")))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *pipelineMetrics
	assert.NotPanics(t, func() {
		m.recorded(SinkConsole, LevelInfo)
		m.reloaded(SinkConsole)
	})
}

func TestBuilderRegistersMetrics(t *testing.T) {
	env := newTestEnv()
	reg := prometheus.NewRegistry()
	b := env.builder(false).WithConsole(LevelDebug).WithRegistry(reg)
	require.NoError(t, b.Build())

	b.Logger().Info("one")
	b.Logger().Info("two")
	b.Logger().Warn("three")

	expected := `
# HELP starter_logging_records_total Records rendered by each sink, by level.
# TYPE starter_logging_records_total counter
starter_logging_records_total{level="INFO",sink="console"} 2
starter_logging_records_total{level="WARN",sink="console"} 1
# HELP starter_logging_sink_threshold Current minimum level of the sink filter.
# TYPE starter_logging_sink_threshold gauge
starter_logging_sink_threshold{sink="console"} -4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"starter_logging_records_total", "starter_logging_sink_threshold"))

	count, err := testutil.GatherAndCount(reg, "starter_logging_dropped_records_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBuilderRegistersDroppedCounter(t *testing.T) {
	env := newTestEnv()
	reg := prometheus.NewRegistry()
	b := env.builder(false).
		WithConsole(LevelInfo).
		WithFile(LevelInfo).
		WithFileBasePath(t.TempDir()).
		WithRegistry(reg)
	require.NoError(t, b.Build())
	require.NoError(t, b.Close())

	b.Logger().Info("dropped")

	expected := `
# HELP starter_logging_dropped_records_total Lines dropped by the non-blocking file writer.
# TYPE starter_logging_dropped_records_total counter
starter_logging_dropped_records_total{sink="file"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"starter_logging_dropped_records_total"))
}

func TestBuildFailsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, newPipelineMetrics().register(reg, nil, nil))

	env := newTestEnv()
	err := env.builder(false).WithConsole(LevelInfo).WithRegistry(reg).Build()
	assert.True(t, IsSetupError(err))
	assert.Empty(t, env.installed)
}
