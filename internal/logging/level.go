package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Severity levels shared by every sink. TRACE sits below slog's DEBUG.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel converts a case-insensitive level name to a slog.Level.
// Only trace, debug, info, warn and error are recognized; surrounding
// whitespace is not trimmed.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return 0, false
	}
}

// LevelName returns the canonical upper-case name of a level.
func LevelName(level slog.Level) string {
	switch {
	case level >= LevelError:
		return "ERROR"
	case level >= LevelWarn:
		return "WARN"
	case level >= LevelInfo:
		return "INFO"
	case level >= LevelDebug:
		return "DEBUG"
	case level >= LevelTrace:
		return "TRACE"
	default:
		return fmt.Sprintf("TRACE%+d", int(level-LevelTrace))
	}
}

// replaceLevelAttr rewrites the level attribute of slog's built-in handlers
// so TRACE is printed by name instead of "DEBUG-4".
func replaceLevelAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok {
		a.Value = slog.StringValue(LevelName(level))
	}
	return a
}
