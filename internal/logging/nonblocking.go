package logging

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferedLines is the queue depth of a NonBlocking writer.
const DefaultBufferedLines = 128_000

var errWriterClosed = errors.New("non-blocking writer closed")

type nbMessage struct {
	line    []byte
	confirm chan struct{}
}

// NonBlocking moves writes to a background goroutine. When the queue is full
// lines are dropped and counted instead of blocking the caller.
type NonBlocking struct {
	dest    io.WriteCloser
	queue   chan nbMessage
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// WorkerGuard owns the background writer. Closing it drains queued lines and
// closes the destination; it must be held for the life of the pipeline.
type WorkerGuard struct {
	w    *NonBlocking
	once sync.Once
	err  error
}

// NewNonBlocking starts the background writer for dest.
func NewNonBlocking(dest io.WriteCloser, buffered int) (*NonBlocking, *WorkerGuard) {
	if buffered <= 0 {
		buffered = DefaultBufferedLines
	}
	w := &NonBlocking{
		dest:  dest,
		queue: make(chan nbMessage, buffered),
		done:  make(chan struct{}),
	}
	go w.run()
	return w, &WorkerGuard{w: w}
}

func (w *NonBlocking) run() {
	defer close(w.done)
	for msg := range w.queue {
		if msg.confirm != nil {
			close(msg.confirm)
			continue
		}
		// A failed write has nowhere to be reported from here.
		_, _ = w.dest.Write(msg.line)
	}
}

// Write queues a copy of p. It never blocks on the destination.
func (w *NonBlocking) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return 0, errWriterClosed
	}

	line := make([]byte, len(p))
	copy(line, p)
	select {
	case w.queue <- nbMessage{line: line}:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped returns the number of lines discarded so far.
func (w *NonBlocking) Dropped() uint64 {
	return w.dropped.Load()
}

// Flush waits until every line queued before the call has been written, or
// until timeout elapses. It reports whether the queue was drained.
func (w *NonBlocking) Flush(timeout time.Duration) bool {
	confirm := make(chan struct{})
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return false
	}
	select {
	case w.queue <- nbMessage{confirm: confirm}:
	default:
		w.mu.RUnlock()
		return false
	}
	w.mu.RUnlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-confirm:
		return true
	case <-timer.C:
		return false
	}
}

func (w *NonBlocking) close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
	return w.dest.Close()
}

// Writer returns the guarded writer.
func (g *WorkerGuard) Writer() *NonBlocking {
	return g.w
}

// Dropped returns the writer's dropped line count.
func (g *WorkerGuard) Dropped() uint64 {
	if g == nil {
		return 0
	}
	return g.w.Dropped()
}

// Flush waits for the lines queued so far to be written.
func (g *WorkerGuard) Flush(timeout time.Duration) bool {
	if g == nil {
		return true
	}
	return g.w.Flush(timeout)
}

// Close stops intake, writes every queued line and closes the destination.
// It is safe to call more than once.
func (g *WorkerGuard) Close() error {
	if g == nil {
		return nil
	}
	g.once.Do(func() {
		g.err = g.w.close()
	})
	return g.err
}
