// Package logging builds the process-wide slog pipeline and keeps each
// output's level adjustable while the process runs.
//
// # Sinks
//
// Three outputs are supported, each with its own minimum level:
//   - console: one line per record on stdout, level coloured on a terminal
//   - journal: systemd journal via [github.com/coreos/go-systemd/v22/journal]
//   - file: daily files under a directory, written by a background goroutine
//
// The console sink is mandatory. The file sink keeps the newest five files
// by default.
//
// # Usage
//
//	b := logging.NewBuilder().
//		WithConsole(logging.LevelInfo).
//		WithJournal(logging.LevelTrace).
//		WithFile(logging.LevelTrace).
//		WithFileBasePath("logs/").
//		WithFilePrefix("starter-template")
//	if err := b.Build(); err != nil {
//		return err
//	}
//	defer b.Close()
//
//	slog.Info("ready")
//
// Build installs the pipeline with [log/slog.SetDefault]; it can succeed only
// once per process.
//
// # Changing levels
//
// The With* methods stay usable after Build. They change the desired level
// only; Refresh applies it:
//
//	b.WithConsoleString(cfg.CLILogLevel) // unknown names are ignored
//	if err := b.Refresh(); err != nil {
//		slog.Warn("Failed to apply log levels", "error", err)
//	}
//
// A [FilterHandle] from [Builder.Handle] changes one sink directly.
//
// # Levels
//
// TRACE is [LevelTrace], below slog's DEBUG. Log it with
//
//	logger.Log(ctx, logging.LevelTrace, "details")
//
// Journal priorities are ERROR=err, WARN=warning, INFO=notice, DEBUG=info and
// TRACE=debug:
//
//	journalctl -t starter-template -p notice
package logging
