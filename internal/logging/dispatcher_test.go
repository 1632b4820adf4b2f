package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("boom") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h failingHandler) WithGroup(string) slog.Handler { return h }

func TestDispatcherPerSinkThresholds(t *testing.T) {
	var low, high bytes.Buffer
	lowHandle := newFilterHandle(SinkConsole, LevelInfo, nil)
	highHandle := newFilterHandle(SinkFile, LevelError, nil)

	d := newDispatcher(nil,
		sinkHandler{kind: SinkConsole, handler: newFilteredHandler(NewConsoleHandler(&low), lowHandle)},
		sinkHandler{kind: SinkFile, handler: newFilteredHandler(NewConsoleHandler(&high), highHandle)},
	)
	logger := slog.New(d)

	assert.Equal(t, []SinkKind{SinkConsole, SinkFile}, d.Sinks())
	assert.False(t, d.Enabled(context.Background(), LevelDebug))
	assert.True(t, d.Enabled(context.Background(), LevelWarn))

	logger.Warn("only low")
	logger.Error("both")

	assert.Contains(t, low.String(), "only low")
	assert.Contains(t, low.String(), "both")
	assert.NotContains(t, high.String(), "only low")
	assert.Contains(t, high.String(), "both")
}

func TestDispatcherAttemptsEverySink(t *testing.T) {
	var buf bytes.Buffer
	d := newDispatcher(nil,
		sinkHandler{kind: SinkJournal, handler: newFilteredHandler(failingHandler{}, newFilterHandle(SinkJournal, LevelTrace, nil))},
		sinkHandler{kind: SinkConsole, handler: newFilteredHandler(NewConsoleHandler(&buf), newFilterHandle(SinkConsole, LevelTrace, nil))},
	)

	r := slog.NewRecord(fixedTime, LevelInfo, "still written", 0)
	err := d.Handle(context.Background(), r)

	require.Error(t, err)
	assert.Contains(t, buf.String(), "still written")
}

func TestDerivedLoggersShareFilter(t *testing.T) {
	var buf bytes.Buffer
	handle := newFilterHandle(SinkConsole, LevelInfo, nil)
	d := newDispatcher(nil, sinkHandler{kind: SinkConsole, handler: newFilteredHandler(NewConsoleHandler(&buf), handle)})

	derived := slog.New(d).With("module", "worker").WithGroup("req")
	derived.Debug("before")
	require.NoError(t, handle.SetLevel(LevelDebug))
	derived.Debug("after", "id", 1)

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after module=worker req.id=1")
}

func TestDetachedHandle(t *testing.T) {
	var h *FilterHandle
	assert.ErrorIs(t, h.SetLevel(LevelInfo), ErrHandleDetached)
	assert.Equal(t, LevelTrace, h.Level())

	h = &FilterHandle{sink: SinkConsole}
	assert.ErrorIs(t, h.SetLevel(LevelInfo), ErrHandleDetached)
}
