package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a buffered handler. The synchronous handler
// returns a no-op Closer so callers can defer it unconditionally.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// BufferedHandler decouples log emission from the writer behind it. Records
// go through a bounded queue drained by worker goroutines; when the queue is
// full the record is dropped rather than stalling a request. Buffer capacity
// and worker count come from the logging config.
type BufferedHandler struct {
	inner   slog.Handler
	queue   chan slog.Record
	workers *sync.WaitGroup
	dropped *atomic.Int64
}

// NewBufferedHandler starts workers draining a queue of the given capacity
// into inner.
func NewBufferedHandler(inner slog.Handler, capacity, workers int) *BufferedHandler {
	h := &BufferedHandler{
		inner:   inner,
		queue:   make(chan slog.Record, capacity),
		workers: &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	for i := 0; i < workers; i++ {
		h.workers.Add(1)
		go func() {
			defer h.workers.Done()
			for rec := range h.queue {
				_ = h.inner.Handle(context.Background(), rec)
			}
		}()
	}
	return h
}

func (h *BufferedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it when the queue is full. Never
// blocks and never returns an error.
func (h *BufferedHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- rec:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs wraps the derived inner handler while sharing the queue, so
// attribute-scoped loggers still drain through the same workers.
func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferedHandler{
		inner:   h.inner.WithAttrs(attrs),
		queue:   h.queue,
		workers: h.workers,
		dropped: h.dropped,
	}
}

// WithGroup wraps the derived inner handler while sharing the queue.
func (h *BufferedHandler) WithGroup(name string) slog.Handler {
	return &BufferedHandler{
		inner:   h.inner.WithGroup(name),
		queue:   h.queue,
		workers: h.workers,
		dropped: h.dropped,
	}
}

// Dropped returns how many records were discarded on a full queue.
func (h *BufferedHandler) Dropped() int64 {
	return h.dropped.Load()
}

// Close drains the queue and stops the workers. Records handled after Close
// panic; callers close only on shutdown.
func (h *BufferedHandler) Close() {
	close(h.queue)
	h.workers.Wait()
}
