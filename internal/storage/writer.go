package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"agrocost/internal/core"
	applog "agrocost/internal/log"
)

// Saver persists a full snapshot of the collection.
type Saver interface {
	Save(ctx context.Context, expenses []core.Expense) error
}

// WriterStats counts what happened to enqueued snapshots.
type WriterStats struct {
	Saved      int64
	Failed     int64
	Superseded int64
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMaxRetries retries a failed save up to n times with exponential
// backoff. Zero, the default, means a single attempt.
func WithMaxRetries(n uint64) WriterOption {
	return func(w *Writer) { w.maxRetries = n }
}

// WithWriterLogger sets the logger failures are reported to.
func WithWriterLogger(l *applog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l.WithComponent(applog.ComponentWriter) }
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) WriterOption {
	return func(w *Writer) { w.initialInterval = d }
}

// Writer is a single-writer queue of depth one in front of a Saver.
//
// Snapshots are saved one at a time in the order they were enqueued. A
// snapshot that is still waiting when a newer one arrives is dropped in
// favour of the newer one, so at most one save is in flight and at most
// one is pending. Save failures are logged and otherwise ignored.
type Writer struct {
	saver           Saver
	logger          *applog.Logger
	maxRetries      uint64
	initialInterval time.Duration

	mu         sync.Mutex
	pending    []core.Expense
	hasPending bool
	generation uint64
	closed     bool
	wake       chan struct{}
	stopped    chan struct{}

	// ctx is cancelled when Close gives up waiting, aborting retries.
	ctx    context.Context
	cancel context.CancelFunc

	saved      atomic.Int64
	failed     atomic.Int64
	superseded atomic.Int64
}

// NewWriter starts the writer goroutine. Close must be called to stop it.
func NewWriter(saver Saver, opts ...WriterOption) *Writer {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		saver:           saver,
		logger:          applog.Discard(),
		initialInterval: 200 * time.Millisecond,
		wake:            make(chan struct{}, 1),
		stopped:         make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

// Enqueue hands a snapshot to the writer and returns immediately. The
// caller must not modify the slice afterwards.
func (w *Writer) Enqueue(expenses []core.Expense) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Warn("Writer closed, dropping snapshot", applog.FieldCount, len(expenses))
		return
	}
	if w.hasPending {
		w.superseded.Add(1)
	}
	w.pending = expenses
	w.hasPending = true
	w.generation++

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting snapshots and waits for the pending one to be
// written. If ctx expires first, the in-flight save is cancelled and
// ctx.Err() is returned.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.wake)
	}
	w.mu.Unlock()

	select {
	case <-w.stopped:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		w.logger.Error("Writer did not drain before shutdown", applog.FieldError, ctx.Err())
		return ctx.Err()
	}
}

// Stats returns a copy of the counters.
func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Saved:      w.saved.Load(),
		Failed:     w.failed.Load(),
		Superseded: w.superseded.Load(),
	}
}

func (w *Writer) run() {
	defer close(w.stopped)

	for range w.wake {
		for {
			w.mu.Lock()
			if !w.hasPending {
				w.mu.Unlock()
				break
			}
			snapshot, gen := w.pending, w.generation
			w.pending, w.hasPending = nil, false
			w.mu.Unlock()

			w.save(snapshot, gen)
		}
	}
}

func (w *Writer) save(snapshot []core.Expense, gen uint64) {
	start := time.Now()
	attempt := 0

	op := func() error {
		attempt++
		err := w.saver.Save(w.ctx, snapshot)
		if errors.Is(err, ErrEncode) {
			return backoff.Permanent(err)
		}
		if err != nil && attempt <= int(w.maxRetries) {
			w.logger.Warn("Save attempt failed, retrying",
				applog.FieldAttempt, attempt, applog.FieldGeneration, gen, applog.FieldError, err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.initialInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, w.maxRetries), w.ctx)

	if err := backoff.Retry(op, b); err != nil {
		w.failed.Add(1)
		w.logger.Error("Failed to save expenses",
			applog.FieldGeneration, gen,
			applog.FieldCount, len(snapshot),
			applog.FieldAttempt, attempt,
			applog.FieldError, err)
		return
	}

	w.saved.Add(1)
	w.logger.Debug("Expenses saved",
		applog.FieldGeneration, gen,
		applog.FieldCount, len(snapshot),
		applog.FieldDuration, time.Since(start).Milliseconds())
}
