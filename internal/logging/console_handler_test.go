package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf).
		WithAttrs([]slog.Attr{slog.String("module", "app")}).
		WithGroup("req")

	r := slog.NewRecord(fixedTime, LevelInfo, "hello", 0)
	r.AddAttrs(slog.String("path", "/a b"), slog.Int("n", 3))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "2024-01-02T03:04:05.123456Z  INFO hello module=app req.path=\"/a b\" req.n=3\n", buf.String())
}

func TestConsoleHandlerLevels(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{LevelTrace, " TRACE "},
		{LevelDebug, " DEBUG "},
		{LevelInfo, "  INFO "},
		{LevelWarn, "  WARN "},
		{LevelError, " ERROR "},
	}

	for _, tt := range tests {
		t.Run(LevelName(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			h := NewConsoleHandler(&buf)
			require.NoError(t, h.Handle(context.Background(), slog.NewRecord(fixedTime, tt.level, "m", 0)))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestConsoleHandlerNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf)
	assert.False(t, h.color)

	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(fixedTime, LevelError, "m", 0)))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestConsoleHandlerColor(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf)
	h.color = true

	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(fixedTime, LevelError, "m", 0)))
	assert.Contains(t, buf.String(), ansiRed+"ERROR"+ansiReset)
}

func TestConsoleHandlerInlineGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf))
	logger.Info("m", slog.Group("db", slog.String("host", "x"), slog.Duration("wait", time.Second)), slog.String("empty", ""))

	assert.Contains(t, buf.String(), " db.host=x db.wait=1s empty=\"\"\n")
}
