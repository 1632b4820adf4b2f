// Package cmd implements the starter-template command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/smazurov/starter-template/internal/app"
	"github.com/smazurov/starter-template/internal/config"
	"github.com/smazurov/starter-template/internal/events"
	"github.com/smazurov/starter-template/internal/logging"
	"github.com/smazurov/starter-template/internal/metrics/exporters"
	"github.com/smazurov/starter-template/internal/version"
	"github.com/spf13/cobra"
)

// ProgramName is the binary and default journal identifier.
const ProgramName = "starter-template"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	logLevel    string
	journald    bool
	logFile     bool
	metricsAddr string
}

// session is everything PersistentPreRunE sets up for a command run.
type session struct {
	opts rootOptions

	// configure lets tests adjust the builder before Build.
	configure func(*logging.Builder)
	signals   []os.Signal

	builder  *logging.Builder
	logger   *slog.Logger
	manager  *config.Manager
	bus      *events.Bus
	watcher  *config.Watcher[config.AppConfig]
	metrics  *exporters.Server
	runtime  *app.Runtime
	unsubs   []func()
	stopOnce sync.Once
}

func newSession() *session {
	return &session{
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	s := newSession()
	root := newRootCmd(s)
	err := root.Execute()
	s.shutdown()
	return s.exitCode(root.ErrOrStderr(), err)
}

func (s *session) exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if s.logger != nil {
		var pe *app.PanicError
		if !errors.As(err, &pe) {
			s.logger.Error("Command failed", "error", err)
		}
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// newRootCmd creates the root command bound to s.
func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:           ProgramName,
		Short:         "A sample repository to build upon existing datasets.",
		Long:          "Starter template with a runtime-reconfigurable logging pipeline.",
		Version:       version.Get().Summary(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipSetup(cmd) {
				return nil
			}
			return s.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			s.shutdown()
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&s.opts.configPath, "config", "c", "", "Load a config `FILE` layered over the defaults")
	flags.StringVar(&s.opts.logLevel, "log-level", "info", "Console log level (trace, debug, info, warn, error)")
	flags.BoolVar(&s.opts.journald, "journald", false, "Also log to the systemd journal")
	flags.BoolVar(&s.opts.logFile, "log-file", true, "Also log to daily rotating files")
	flags.StringVar(&s.opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	root.AddCommand(
		newFileErrorCmd(s),
		newTasksCmd(s),
		newCompletionCmd(root),
	)
	return root
}

const skipSetupAnnotation = "skip-setup"

func skipSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipSetupAnnotation] == "true" {
			return true
		}
	}
	return cmd.Name() == cobra.ShellCompRequestCmd || cmd.Name() == cobra.ShellCompNoDescRequestCmd
}

// setup builds the logging pipeline, loads the configuration and applies its
// levels, then starts the optional config watcher and metrics server.
func (s *session) setup(cmd *cobra.Command) error {
	defaults, err := config.Defaults()
	if err != nil {
		return err
	}

	b := logging.NewBuilder().WithConsole(logging.LevelInfo)
	if s.opts.journald {
		b.WithJournal(logging.LevelTrace)
	}
	if s.opts.logFile {
		b.WithFile(logging.LevelTrace).
			WithFileBasePath(defaults.RollingLogPath).
			WithFilePrefix(defaults.RollingLogPrefix).
			WithFileMaxFiles(defaults.RollingLogMaxFiles)
	}

	var registry *prometheus.Registry
	if s.opts.metricsAddr != "" {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		b.WithRegistry(registry)
	}
	if s.configure != nil {
		s.configure(b)
	}

	if err := b.Build(); err != nil {
		return err
	}
	s.builder = b
	s.logger = b.Logger()
	s.runtime = app.NewRuntime(s.logger)

	ctx := cmd.Context()
	s.logger.Debug("Application started", version.Get().LogAttrs()...)
	if id := b.SyslogIdentifier(); id != "" {
		s.logger.Log(ctx, logging.LevelTrace, fmt.Sprintf("Journald logging enabled with syslog identifier %q", id))
	}

	s.manager = config.NewManager()
	if s.opts.configPath != "" {
		if err := s.manager.AddFileSource(s.opts.configPath); err != nil {
			return err
		}
	}
	s.manager.BindFlags(cmd.Flags())

	cfg, err := s.manager.Snapshot()
	if err != nil {
		return err
	}
	s.logger.Debug("Configuration loaded.", "program", cfg.ProgramName, "files", s.manager.Files())

	s.bus = events.New()
	s.unsubs = append(s.unsubs,
		s.bus.Subscribe(func(e events.ConfigReloadedEvent) {
			// Failures are reported through LevelsRefreshedEvent.
			_ = s.applyConfig(e.Config)
		}),
		s.bus.Subscribe(func(e events.LevelsRefreshedEvent) {
			if e.Failed() {
				s.logger.Warn("Failed to apply log levels", "error", e.Error, "levels", e.Levels)
				return
			}
			s.logger.Debug("Log levels applied", "levels", e.Levels)
		}),
	)

	if err := s.applyConfig(cfg); err != nil {
		return err
	}

	if s.opts.configPath != "" {
		s.startWatcher()
	}
	if registry != nil {
		s.metrics = exporters.NewServer(s.opts.metricsAddr, registry, s.logger)
		if err := s.metrics.Start(); err != nil {
			return err
		}
	}
	return nil
}

// applyConfig pushes the configured levels into the pipeline. Unknown level
// names leave the current level in place.
func (s *session) applyConfig(cfg config.AppConfig) error {
	levels := map[string]string{logging.SinkConsole.String(): cfg.CLILogLevel}
	s.builder.WithConsoleString(cfg.CLILogLevel)

	if s.opts.journald {
		levels[logging.SinkJournal.String()] = cfg.JournaldLogLevel
		s.builder.WithJournalString(cfg.JournaldLogLevel)
	}
	if s.opts.logFile {
		levels[logging.SinkFile.String()] = cfg.RollingLogLevel
		s.builder.WithFileString(cfg.RollingLogLevel)

		dir, prefix, _ := s.builder.FileSettings()
		if cfg.RollingLogPath != dir || cfg.RollingLogPrefix != prefix {
			s.logger.Warn("Log file location changes apply on next start",
				"path", cfg.RollingLogPath, "prefix", cfg.RollingLogPrefix,
				"current_path", dir, "current_prefix", prefix)
		}
	}

	err := s.builder.Refresh()
	ev := events.LevelsRefreshedEvent{
		Levels:    levels,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(ev)
	return err
}

func (s *session) startWatcher() {
	path := s.opts.configPath
	s.watcher = config.NewConfigWatcher(path, s.manager.Load, s.logger)
	s.watcher.OnReload(func(cfg config.AppConfig) {
		s.bus.Publish(events.ConfigReloadedEvent{
			Config:    cfg,
			Path:      path,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
	if err := s.watcher.Start(); err != nil {
		s.logger.Warn("Config watcher not started", "path", path, "error", err)
		s.watcher = nil
	}
}

// run executes fn as the named command and races it against an interrupt.
func (s *session) run(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, s.signals...)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- app.Safely(s.logger, func() error {
			return s.runtime.Execute(ctx, name, fn)
		})
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Interrupted. Shutting down.")
		return nil
	case err := <-done:
		if err != nil {
			return err
		}
		s.logger.Info("Completed. Exiting.")
		return nil
	}
}

// shutdown stops background work, then drains the file sink. Safe to call
// more than once and before setup.
func (s *session) shutdown() {
	s.stopOnce.Do(func() {
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn("Failed to stop config watcher", "error", err)
			}
		}
		for _, unsub := range s.unsubs {
			unsub()
		}
		if s.metrics != nil {
			if err := s.metrics.Stop(); err != nil {
				s.logger.Warn("Failed to stop metrics server", "error", err)
			}
		}
		if s.builder != nil {
			if err := s.builder.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
			}
		}
	})
}
