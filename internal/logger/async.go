package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log output.
type Closer interface {
	Close()
}

type syncCloser struct{}

func (syncCloser) Close() {}

type entry struct {
	next slog.Handler
	ctx  context.Context
	rec  slog.Record
}

// queue is shared by a bufferedHandler and every handler derived from it.
type queue struct {
	entries chan entry
	writers sync.WaitGroup
	dropped atomic.Int64
	base    slog.Handler

	mu     sync.RWMutex
	closed bool
}

func (q *queue) run() {
	defer q.writers.Done()
	for e := range q.entries {
		_ = e.next.Handle(e.ctx, e.rec)
	}
}

// bufferedHandler moves record formatting and writing off the caller's
// goroutine. A full queue drops the record instead of blocking.
type bufferedHandler struct {
	next slog.Handler
	q    *queue
}

func newBufferedHandler(next slog.Handler, capacity, writers int) *bufferedHandler {
	if writers < 1 {
		writers = 1
	}
	q := &queue{entries: make(chan entry, capacity), base: next}
	q.writers.Add(writers)
	for range writers {
		go q.run()
	}
	return &bufferedHandler{next: next, q: q}
}

func (h *bufferedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle queues a copy of rec. The context keeps its values but not its
// cancellation, so records logged at the end of a request still carry the
// request ID. After Close records are written synchronously.
func (h *bufferedHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		return h.next.Handle(ctx, rec)
	}

	e := entry{next: h.next, ctx: context.WithoutCancel(ctx), rec: rec.Clone()}
	select {
	case h.q.entries <- e:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *bufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &bufferedHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *bufferedHandler) WithGroup(name string) slog.Handler {
	return &bufferedHandler{next: h.next.WithGroup(name), q: h.q}
}

// Dropped reports how many records were discarded because the queue was full.
func (h *bufferedHandler) Dropped() int64 {
	return h.q.dropped.Load()
}

// Close drains the queue and stops the writers. If records were dropped a
// final warning with the count is written synchronously. Close is idempotent.
func (h *bufferedHandler) Close() {
	h.q.mu.Lock()
	if h.q.closed {
		h.q.mu.Unlock()
		return
	}
	h.q.closed = true
	close(h.q.entries)
	h.q.mu.Unlock()

	h.q.writers.Wait()
	if n := h.q.dropped.Load(); n > 0 {
		slog.New(h.q.base).Warn("log records dropped", "count", n)
	}
}
