package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Logger buffers usage entries in a channel and writes them to a UsageStore
// from a single background goroutine, either when BatchFlushThreshold entries
// have accumulated or when the flush interval elapses.
type Logger struct {
	store   UsageStore
	config  Config
	buffer  chan *UsageEntry
	done    chan struct{}
	loop    sync.WaitGroup
	mu      sync.RWMutex // guards closed and sends on buffer
	closed  bool
	dropped atomic.Int64
}

// NewLogger creates a Logger and starts its flush goroutine.
func NewLogger(store UsageStore, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	l := &Logger{
		store:  store,
		config: cfg,
		buffer: make(chan *UsageEntry, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	l.loop.Add(1)
	go l.flushLoop()

	return l
}

// Write queues entry without blocking. Entries are dropped when the buffer is
// full or the logger is closed.
func (l *Logger) Write(entry *UsageEntry) {
	if entry == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		l.dropped.Add(1)
		slog.Warn("usage buffer full, dropping entry",
			"request_id", entry.RequestID,
			"outcome", entry.Outcome,
		)
	}
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}

// Dropped returns how many entries were discarded because the buffer was full.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close stops accepting entries, flushes what is buffered and closes the store.
// It is idempotent.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.done)
	l.loop.Wait()

	return l.store.Close()
}

func (l *Logger) flushLoop() {
	defer l.loop.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*UsageEntry, 0, BatchFlushThreshold)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		l.writeBatch(batch)
		batch = make([]*UsageEntry, 0, BatchFlushThreshold)
	}

	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= BatchFlushThreshold {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-l.done:
			// Close holds closed under mu, so no Write can still send.
			close(l.buffer)
			for entry := range l.buffer {
				batch = append(batch, entry)
			}
			flush()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := l.store.Flush(ctx); err != nil {
				slog.Error("failed to flush usage store", "error", err)
			}
			cancel()
			return
		}
	}
}

func (l *Logger) writeBatch(batch []*UsageEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write usage batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// NoopLogger is used when usage tracking is disabled.
type NoopLogger struct{}

// Write does nothing
func (l *NoopLogger) Write(_ *UsageEntry) {}

// Config returns a disabled config
func (l *NoopLogger) Config() Config {
	return Config{Enabled: false}
}

// Close does nothing
func (l *NoopLogger) Close() error {
	return nil
}

// LoggerInterface is satisfied by Logger and NoopLogger.
type LoggerInterface interface {
	Write(entry *UsageEntry)
	Config() Config
	Close() error
}
