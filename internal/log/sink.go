package log

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Event is an error record shipped to an external sink.
type Event struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Publisher delivers events to an external sink.
type Publisher interface {
	PublishLogEvent(ctx context.Context, e Event) error
}

// sinkBuffer bounds the events waiting for the publisher.
const sinkBuffer = 64

// SinkHandler forwards records to inner and additionally publishes every
// record at or above minLevel. Publishing happens on one background
// goroutine; when its buffer is full the event is dropped. Publish errors
// are dropped too.
type SinkHandler struct {
	inner    slog.Handler
	minLevel slog.Level
	attrs    []slog.Attr
	queue    *eventQueue
}

// eventQueue is shared by a handler and every handler derived from it.
type eventQueue struct {
	publisher Publisher
	timeout   time.Duration

	mu      sync.Mutex
	closed  bool
	events  chan Event
	done    chan struct{}
	dropped atomic.Int64
}

// NewSinkHandler wraps inner and starts the publishing goroutine. Records
// below minLevel are never published. Close stops it.
func NewSinkHandler(inner slog.Handler, publisher Publisher, minLevel slog.Level) *SinkHandler {
	q := &eventQueue{
		publisher: publisher,
		timeout:   2 * time.Second,
		events:    make(chan Event, sinkBuffer),
		done:      make(chan struct{}),
	}
	go q.run()
	return &SinkHandler{
		inner:    inner,
		minLevel: minLevel,
		queue:    q,
	}
}

// Close stops accepting events and waits until the buffered ones are
// published or ctx is done. Records logged afterwards still reach inner.
func (h *SinkHandler) Close(ctx context.Context) error {
	q := h.queue
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many events were discarded because the buffer was
// full or the handler closed.
func (h *SinkHandler) Dropped() int64 { return h.queue.dropped.Load() }

func (q *eventQueue) run() {
	defer close(q.done)
	for e := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		_ = q.publisher.PublishLogEvent(ctx, e)
		cancel()
	}
}

func (q *eventQueue) send(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.events <- e:
	default:
		q.dropped.Add(1)
	}
}

func (h *SinkHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.minLevel
}

func (h *SinkHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.inner.Enabled(ctx, r.Level) {
		err = h.inner.Handle(ctx, r)
	}
	if r.Level >= h.minLevel && h.queue.publisher != nil {
		h.queue.send(h.event(r))
	}
	return err
}

func (h *SinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.inner = h.inner.WithAttrs(attrs)
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *SinkHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.inner = h.inner.WithGroup(name)
	return &next
}

func (h *SinkHandler) event(r slog.Record) Event {
	e := Event{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   make(map[string]any, len(h.attrs)+r.NumAttrs()),
	}
	add := func(a slog.Attr) bool {
		if a.Key == FieldComponent {
			e.Component = a.Value.String()
			return true
		}
		v := a.Value.Resolve().Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		e.Attrs[a.Key] = v
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)
	return e
}
