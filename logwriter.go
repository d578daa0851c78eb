package limiterd

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/krishna-kudari/limiterd/store"
)

// DefaultLogQueueSize is the default capacity of the log writer's queue.
const DefaultLogQueueSize = 1024

// LogWriter persists decision records off the decision path. Enqueue never
// blocks: when the queue is full the oldest pending record is dropped, so
// telemetry stays best-effort while decisions stay fast. Append failures
// are logged and swallowed; the decision they belong to has already been
// returned and is never undone.
type LogWriter struct {
	sink   store.LogAppender
	logger *zap.Logger

	ch chan *store.RequestLog
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
	onDrop func()
}

// LogWriterOption configures a LogWriter.
type LogWriterOption func(*LogWriter)

// WithLogQueueSize sets the queue capacity (default DefaultLogQueueSize).
func WithLogQueueSize(n int) LogWriterOption {
	return func(w *LogWriter) {
		if n > 0 {
			w.ch = make(chan *store.RequestLog, n)
		}
	}
}

// WithDropHook installs a callback invoked once per dropped record.
func WithDropHook(fn func()) LogWriterOption {
	return func(w *LogWriter) { w.onDrop = fn }
}

// NewLogWriter starts a writer draining into sink.
func NewLogWriter(sink store.LogAppender, logger *zap.Logger, opts ...LogWriterOption) *LogWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &LogWriter{
		sink:   sink,
		logger: logger,
		ch:     make(chan *store.RequestLog, DefaultLogQueueSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue submits a record for persistence. Safe to call concurrently;
// no-op after Close.
func (w *LogWriter) Enqueue(entry *store.RequestLog) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- entry:
		return
	default:
	}
	// Queue full: shed the oldest pending record, then retry once. The
	// second send can still lose a race with the drain goroutine, in
	// which case the newest record is the casualty instead.
	select {
	case <-w.ch:
		w.drop()
	default:
	}
	select {
	case w.ch <- entry:
	default:
		w.drop()
	}
}

func (w *LogWriter) drop() {
	if w.onDrop != nil {
		w.onDrop()
	}
}

func (w *LogWriter) run() {
	defer w.wg.Done()
	for entry := range w.ch {
		if err := w.sink.AppendLog(context.Background(), entry); err != nil {
			w.logger.Warn("request log append failed",
				zap.String("api_key", entry.APIKey),
				zap.Error(err))
		}
	}
}

// Close stops intake, flushes the queue, and waits for the drain goroutine.
func (w *LogWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()
	w.wg.Wait()
}
