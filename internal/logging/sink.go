package logging

import (
	"log/slog"
	"maps"
)

// SinkKind identifies one of the supported output sinks.
type SinkKind int

// Supported sinks, in dispatch order.
const (
	SinkConsole SinkKind = iota + 1
	SinkJournal
	SinkFile
)

// String returns the sink name used in errors, metrics and diagnostics.
func (k SinkKind) String() string {
	switch k {
	case SinkConsole:
		return "console"
	case SinkJournal:
		return "journal"
	case SinkFile:
		return "file"
	default:
		return ""
	}
}

// Sink parameter keys.
const (
	ParamSyslogIdentifier = "syslog_identifier"
)

// Rolling file defaults.
const (
	DefaultFileBaseDir   = "logs/"
	DefaultFilePrefix    = "starter-template"
	DefaultFileSuffix    = "log"
	DefaultMaxLogFiles   = 5
	DefaultMaxFileSizeMB = 100
)

// SinkConfig holds the desired state of one sink. The handle is nil until
// the pipeline is installed.
type SinkConfig struct {
	Level  slog.Level
	Params map[string]string

	handle *FilterHandle
}

func newSinkConfig(level slog.Level) *SinkConfig {
	return &SinkConfig{
		Level:  level,
		Params: make(map[string]string),
	}
}

// Live reports whether the sink has been installed.
func (c *SinkConfig) Live() bool {
	return c != nil && c.handle != nil
}

// Handle returns the sink's filter handle, or nil before install.
func (c *SinkConfig) Handle() *FilterHandle {
	if c == nil {
		return nil
	}
	return c.handle
}

// clone returns a copy safe to hand out to callers.
func (c *SinkConfig) clone() SinkConfig {
	return SinkConfig{
		Level:  c.Level,
		Params: maps.Clone(c.Params),
		handle: c.handle,
	}
}

// FileSinkConfig extends SinkConfig with the rolling file parameters and
// owns the background writer for the file sink.
type FileSinkConfig struct {
	SinkConfig

	BaseDir   string
	Prefix    string
	MaxFiles  int
	MaxSizeMB int

	guard *WorkerGuard
}

func newFileSinkConfig(level slog.Level) *FileSinkConfig {
	return &FileSinkConfig{
		SinkConfig: *newSinkConfig(level),
		BaseDir:    DefaultFileBaseDir,
		Prefix:     DefaultFilePrefix,
		MaxFiles:   DefaultMaxLogFiles,
		MaxSizeMB:  DefaultMaxFileSizeMB,
	}
}
