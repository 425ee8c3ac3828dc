// Package worker processes the error events the application publishes
// to the log broker.
package worker

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"agrocost/internal/amqp"
	applog "agrocost/internal/log"
)

// LogEventWorker prints consumed error events, one line each.
type LogEventWorker struct {
	out     io.Writer
	source  string
	handled atomic.Int64
}

// NewLogEventWorker writes events to out. A non-empty source skips events
// published by other applications sharing the queue.
func NewLogEventWorker(out io.Writer, source string) *LogEventWorker {
	return &LogEventWorker{out: out, source: source}
}

// HandleLogEvent implements the amqp consumer callback. A write error
// requeues the message.
func (w *LogEventWorker) HandleLogEvent(_ context.Context, msg *amqp.LogEventMessage) error {
	if w.source != "" && msg.Source != w.source {
		return nil
	}
	if _, err := fmt.Fprintln(w.out, FormatEvent(msg)); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.handled.Add(1)
	return nil
}

// Handled returns the number of events printed so far.
func (w *LogEventWorker) Handled() int64 { return w.handled.Load() }

// FormatEvent renders an event as a logfmt-like line with sorted attributes.
func FormatEvent(msg *amqp.LogEventMessage) string {
	var sb strings.Builder
	sb.WriteString(msg.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, " %s %s", msg.Level, msg.Source)
	if msg.Component != "" {
		fmt.Fprintf(&sb, " %s=%s", applog.FieldComponent, msg.Component)
	}
	fmt.Fprintf(&sb, " %q", msg.Message)

	keys := make([]string, 0, len(msg.Attrs))
	for k := range msg.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, msg.Attrs[k])
	}
	return sb.String()
}
