package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const rollingDateLayout = "2006-01-02"

// RollingFile writes to <dir>/<prefix>.<YYYY-MM-DD>.<suffix>, switching files
// at UTC midnight and keeping at most maxFiles of them.
type RollingFile struct {
	dir       string
	prefix    string
	suffix    string
	maxFiles  int
	maxSizeMB int
	now       func() time.Time

	mu      sync.Mutex
	date    string
	current *lumberjack.Logger
}

// NewRollingFile creates dir if needed and verifies that today's file can be
// opened for appending.
func NewRollingFile(dir, prefix string, maxFiles, maxSizeMB int) (*RollingFile, error) {
	return newRollingFile(dir, prefix, maxFiles, maxSizeMB, time.Now)
}

func newRollingFile(dir, prefix string, maxFiles, maxSizeMB int, now func() time.Time) (*RollingFile, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxLogFiles
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxFileSizeMB
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	r := &RollingFile{
		dir:       dir,
		prefix:    prefix,
		suffix:    DefaultFileSuffix,
		maxFiles:  maxFiles,
		maxSizeMB: maxSizeMB,
		now:       now,
	}

	probe, err := os.OpenFile(r.pathFor(r.today()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("close log file: %w", err)
	}
	return r, nil
}

func (r *RollingFile) today() string {
	return r.now().UTC().Format(rollingDateLayout)
}

func (r *RollingFile) pathFor(date string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s.%s.%s", r.prefix, date, r.suffix))
}

// Path returns the file currently being written.
func (r *RollingFile) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.date == "" {
		return r.pathFor(r.today())
	}
	return r.pathFor(r.date)
}

// Write implements io.Writer.
func (r *RollingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if date := r.today(); date != r.date {
		if err := r.rollLocked(date); err != nil {
			return 0, err
		}
	}
	return r.current.Write(p)
}

func (r *RollingFile) rollLocked(date string) error {
	if r.current != nil {
		if err := r.current.Close(); err != nil {
			return err
		}
	}
	r.date = date
	r.current = &lumberjack.Logger{
		Filename: r.pathFor(date),
		MaxSize:  r.maxSizeMB,
	}
	return r.pruneLocked()
}

// pruneLocked removes the oldest files so that at most maxFiles remain,
// counting the current one. Only names produced by this writer are
// considered; dated names sort chronologically.
func (r *RollingFile) pruneLocked() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	var names []string
	current := filepath.Base(r.pathFor(r.date))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == current {
			continue
		}
		if r.isRotated(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	excess := len(names) - (r.maxFiles - 1)
	for i := 0; i < excess; i++ {
		if err := os.Remove(filepath.Join(r.dir, names[i])); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// isRotated reports whether name is <prefix>.<date>[tail].<suffix>. The tail
// covers lumberjack's size backups of a day's file.
func (r *RollingFile) isRotated(name string) bool {
	rest, ok := strings.CutPrefix(name, r.prefix+".")
	if !ok {
		return false
	}
	rest, ok = strings.CutSuffix(rest, "."+r.suffix)
	if !ok || len(rest) < len(rollingDateLayout) {
		return false
	}
	_, err := time.Parse(rollingDateLayout, rest[:len(rollingDateLayout)])
	return err == nil
}

// Close closes the current file.
func (r *RollingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	r.date = ""
	return err
}
