// Package app holds the demo workloads run by the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/smazurov/starter-template/internal/logging"
	"golang.org/x/sync/errgroup"
)

// MissingFile is the path FileError tries to read.
const MissingFile = "non-existent-file"

// Runtime runs commands against the installed logger.
type Runtime struct {
	logger *slog.Logger
	open   func(name string) (io.ReadCloser, error)
}

// NewRuntime returns a runtime that logs through logger.
func NewRuntime(logger *slog.Logger) *Runtime {
	return &Runtime{
		logger: logger,
		open: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
}

// Execute logs the command name and runs fn.
func (r *Runtime) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	r.logger.Info(fmt.Sprintf("Executing command %q.", name))
	return fn(ctx)
}

// FileError reads a file that does not exist and returns the resulting error.
func (r *Runtime) FileError(ctx context.Context) error {
	r.logger.DebugContext(ctx, "Opening file.", "path", MissingFile)

	f, err := r.open(MissingFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", MissingFile, err)
	}
	defer f.Close()

	r.logger.DebugContext(ctx, "Reading file contents.")
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", MissingFile, err)
	}

	r.logger.InfoContext(ctx, fmt.Sprintf("Read %d bytes.", len(data)))
	return nil
}

// Tasks fans out n tasks that each return a greeting, and logs every
// greeting as it arrives. Results are in completion order.
func (r *Runtime) Tasks(ctx context.Context, n int) ([]string, error) {
	if n < 0 {
		return nil, errors.New("task count must not be negative")
	}

	results := make(chan string, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.logger.Log(gctx, logging.LevelTrace, "Task span entered", "task", i)
			r.logger.DebugContext(gctx, fmt.Sprintf("Entered task %d", i))
			results <- fmt.Sprintf("Hello from task %d", i)
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(results)
	}()

	msgs := make([]string, 0, n)
	for msg := range results {
		r.logger.InfoContext(ctx, fmt.Sprintf("Received msg %q", msg))
		msgs = append(msgs, msg)
	}
	if err := <-waitErr; err != nil {
		r.logger.ErrorContext(ctx, "Failed to process task", "error", err)
		return msgs, err
	}
	return msgs, nil
}
