package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State is the lifecycle stage of a Builder.
type State int

// Builder states. A builder only ever moves forward.
const (
	StateUnconfigured State = iota
	StateConfigured
	StateInstalled
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateInstalled:
		return "installed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// installer guards the process-wide default logger.
type installer struct {
	claimed atomic.Bool
	install func(*slog.Logger)
}

func (i *installer) claim() bool {
	return i.claimed.CompareAndSwap(false, true)
}

func (i *installer) release() {
	i.claimed.Store(false)
}

var processInstaller = &installer{install: slog.SetDefault}

// Builder accumulates sink configurations and installs them once as the
// process-wide slog handler. After Build the set of sinks is fixed, but each
// sink's level can still be changed with the With* methods and Refresh.
type Builder struct {
	mu sync.Mutex

	console *SinkConfig
	journal *SinkConfig
	file    *FileSinkConfig

	registry prometheus.Registerer
	state    State
	logger   *slog.Logger

	// Replaced in tests.
	stdout    io.Writer
	now       func() time.Time
	transport journalTransport
	installer *installer
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		stdout:    os.Stdout,
		now:       time.Now,
		transport: systemJournal,
		installer: processInstaller,
	}
}

// WithConsole adds the console sink or updates its level.
func (b *Builder) WithConsole(level slog.Level) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.console == nil {
		b.console = newSinkConfig(level)
	} else {
		b.console.Level = level
	}
	b.touchLocked()
	return b
}

// WithJournal adds the journal sink or updates its level.
func (b *Builder) WithJournal(level slog.Level) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.journal == nil {
		b.journal = newSinkConfig(level)
	} else {
		b.journal.Level = level
	}
	b.touchLocked()
	return b
}

// WithFile adds the rolling file sink or updates its level.
func (b *Builder) WithFile(level slog.Level) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		b.file = newFileSinkConfig(level)
	} else {
		b.file.Level = level
	}
	b.touchLocked()
	return b
}

// WithJournalIdentifier sets the SYSLOG_IDENTIFIER used by the journal sink.
// An empty identifier means the executable's base name. Panics if WithJournal
// was not called.
func (b *Builder) WithJournalIdentifier(identifier string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.journal == nil {
		panic("logging: WithJournalIdentifier called before WithJournal")
	}
	b.journal.Params[ParamSyslogIdentifier] = identifier
	return b
}

// WithConsoleString is WithConsole for a level name. Unknown names are ignored.
func (b *Builder) WithConsoleString(level string) *Builder {
	if l, ok := ParseLevel(level); ok {
		return b.WithConsole(l)
	}
	return b
}

// WithJournalString is WithJournal for a level name. Unknown names are ignored.
func (b *Builder) WithJournalString(level string) *Builder {
	if l, ok := ParseLevel(level); ok {
		return b.WithJournal(l)
	}
	return b
}

// WithFileString is WithFile for a level name. Unknown names are ignored.
func (b *Builder) WithFileString(level string) *Builder {
	if l, ok := ParseLevel(level); ok {
		return b.WithFile(l)
	}
	return b
}

// WithFileBasePath sets the log directory. Panics if WithFile was not called.
func (b *Builder) WithFileBasePath(path string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileLocked("WithFileBasePath").BaseDir = path
	return b
}

// WithFilePrefix sets the log file name prefix. Panics if WithFile was not called.
func (b *Builder) WithFilePrefix(prefix string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileLocked("WithFilePrefix").Prefix = prefix
	return b
}

// WithFileMaxFiles sets how many daily files are kept. Panics if WithFile was not called.
func (b *Builder) WithFileMaxFiles(n int) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileLocked("WithFileMaxFiles").MaxFiles = n
	return b
}

// WithFileMaxSizeMB caps the size of one day's file. Panics if WithFile was not called.
func (b *Builder) WithFileMaxSizeMB(n int) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileLocked("WithFileMaxSizeMB").MaxSizeMB = n
	return b
}

// WithRegistry registers the pipeline metrics with reg on Build.
func (b *Builder) WithRegistry(reg prometheus.Registerer) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry = reg
	return b
}

// WithStdout sends the console sink to w instead of os.Stdout.
func (b *Builder) WithStdout(w io.Writer) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stdout = w
	return b
}

// WithInstallFunc installs the built logger with fn instead of
// slog.SetDefault. The once-only rule then applies to this builder alone.
func (b *Builder) WithInstallFunc(fn func(*slog.Logger)) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.installer = &installer{install: fn}
	return b
}

func (b *Builder) fileLocked(op string) *FileSinkConfig {
	if b.file == nil {
		panic("logging: " + op + " called before WithFile")
	}
	return b.file
}

func (b *Builder) touchLocked() {
	if b.state == StateUnconfigured {
		b.state = StateConfigured
	}
}

// State returns the builder's lifecycle stage.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Build constructs every configured sink and installs the result as the
// process default logger. It fails if the console sink is missing, if a sink
// cannot be created, or if a pipeline has already been installed.
func (b *Builder) Build() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateInstalled {
		return newSetupError(0, "build", ErrAlreadyInstalled)
	}
	if b.console == nil {
		return newSetupError(SinkConsole, "build", ErrConsoleRequired)
	}
	if !b.installer.claim() {
		return newSetupError(0, "build", ErrAlreadyInstalled)
	}

	p, err := b.assembleLocked()
	if err != nil {
		b.installer.release()
		return err
	}

	b.installer.install(p.logger)

	b.logger = p.logger
	b.console.handle = p.handles[SinkConsole]
	if b.journal != nil {
		b.journal.handle = p.handles[SinkJournal]
		b.journal.Params[ParamSyslogIdentifier] = p.identifier
	}
	if b.file != nil {
		b.file.handle = p.handles[SinkFile]
		b.file.guard = p.guard
	}
	b.state = StateInstalled
	return nil
}

// pipeline is a fully constructed, not yet published set of sinks.
type pipeline struct {
	logger     *slog.Logger
	handles    map[SinkKind]*FilterHandle
	identifier string
	guard      *WorkerGuard
}

func (b *Builder) assembleLocked() (*pipeline, error) {
	metrics := newPipelineMetrics()
	p := &pipeline{handles: make(map[SinkKind]*FilterHandle)}
	var sinks []sinkHandler

	add := func(kind SinkKind, level slog.Level, h slog.Handler) {
		handle := newFilterHandle(kind, level, metrics)
		p.handles[kind] = handle
		sinks = append(sinks, sinkHandler{kind: kind, handler: newFilteredHandler(h, handle)})
	}

	add(SinkConsole, b.console.Level, NewConsoleHandler(b.stdout))

	if b.journal != nil {
		jh, err := newJournalHandler(b.transport, b.journal.Params[ParamSyslogIdentifier])
		if err != nil {
			return nil, newSetupError(SinkJournal, "connect to journal", err)
		}
		p.identifier = jh.Identifier()
		add(SinkJournal, b.journal.Level, jh)
	}

	if b.file != nil {
		rf, err := newRollingFile(b.file.BaseDir, b.file.Prefix, b.file.MaxFiles, b.file.MaxSizeMB, b.now)
		if err != nil {
			return nil, newSetupError(SinkFile, "create rolling file", err)
		}
		w, guard := NewNonBlocking(rf, DefaultBufferedLines)
		p.guard = guard
		add(SinkFile, b.file.Level, slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       LevelTrace,
			ReplaceAttr: replaceLevelAttr,
		}))
	}

	if b.registry != nil {
		handles := make([]*FilterHandle, 0, len(sinks))
		for _, s := range sinks {
			handles = append(handles, p.handles[s.kind])
		}
		if err := metrics.register(b.registry, handles, p.guard); err != nil {
			_ = p.guard.Close()
			return nil, newSetupError(0, "register metrics", err)
		}
	}

	p.logger = slog.New(newDispatcher(metrics, sinks...))
	return p, nil
}

// Refresh pushes each live sink's configured level into its filter. Every
// sink is attempted; failures are reported together.
func (b *Builder) Refresh() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, s := range b.sinksLocked() {
		if !s.cfg.Live() {
			continue
		}
		if err := s.cfg.handle.SetLevel(s.cfg.Level); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.kind, err))
		}
	}
	if len(errs) > 0 {
		return newReloadError("update sink filters", errors.Join(errs...))
	}
	return nil
}

type kindConfig struct {
	kind SinkKind
	cfg  *SinkConfig
}

func (b *Builder) sinksLocked() []kindConfig {
	var out []kindConfig
	if b.console != nil {
		out = append(out, kindConfig{SinkConsole, b.console})
	}
	if b.journal != nil {
		out = append(out, kindConfig{SinkJournal, b.journal})
	}
	if b.file != nil {
		out = append(out, kindConfig{SinkFile, &b.file.SinkConfig})
	}
	return out
}

// Sink returns a copy of a sink's configuration.
func (b *Builder) Sink(kind SinkKind) (SinkConfig, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sinksLocked() {
		if s.kind == kind {
			return s.cfg.clone(), true
		}
	}
	return SinkConfig{}, false
}

// FileSettings returns the configured directory and prefix of the file sink.
func (b *Builder) FileSettings() (baseDir, prefix string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return "", "", false
	}
	return b.file.BaseDir, b.file.Prefix, true
}

// Logger returns the installed logger, or nil before Build.
func (b *Builder) Logger() *slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logger
}

// Handle returns the filter handle of an installed sink.
func (b *Builder) Handle(kind SinkKind) *FilterHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sinksLocked() {
		if s.kind == kind {
			return s.cfg.handle
		}
	}
	return nil
}

// SyslogIdentifier returns the journal identifier, or "" without a live journal sink.
func (b *Builder) SyslogIdentifier() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.journal.Live() {
		return ""
	}
	return b.journal.Params[ParamSyslogIdentifier]
}

// FileGuard returns the file sink's background writer guard, if any.
func (b *Builder) FileGuard() *WorkerGuard {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return nil
	}
	return b.file.guard
}

// Close drains the file sink's queue and closes its file. The installed
// logger stays in place; later file lines are dropped.
func (b *Builder) Close() error {
	return b.FileGuard().Close()
}
