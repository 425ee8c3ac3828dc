package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) PublishLogEvent(_ context.Context, e Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestSinkHandlerPublishesErrorsOnly(t *testing.T) {
	var buf bytes.Buffer
	pub := &recordingPublisher{err: errors.New("broker down")}
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	sink := NewSinkHandler(inner, pub, slog.LevelError)
	logger := New(Config{Handler: sink, Component: ComponentStorage})

	logger.Info("loaded", FieldCount, 3)
	logger.With(FieldKey, "@expenses").Error("save failed", FieldError, "disk full")
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	e := pub.events[0]
	if e.Message != "save failed" || e.Level != "ERROR" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Component != ComponentStorage {
		t.Fatalf("expected component %q, got %q", ComponentStorage, e.Component)
	}
	if e.Attrs[FieldKey] != "@expenses" || e.Attrs[FieldError] != "disk full" {
		t.Fatalf("unexpected attrs: %v", e.Attrs)
	}
	out := buf.String()
	if !strings.Contains(out, "loaded") || !strings.Contains(out, "save failed") {
		t.Fatalf("inner handler did not receive both records: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).WithComponent(ComponentLedger)
	logger.Info("hello")
	if !strings.Contains(buf.String(), "component=ledger") {
		t.Fatalf("expected component in output, got %s", buf.String())
	}
	if logger.Component() != ComponentLedger {
		t.Fatalf("unexpected component %q", logger.Component())
	}
}

func TestSinkHandlerStringifiesErrors(t *testing.T) {
	pub := &recordingPublisher{}
	inner := slog.NewTextHandler(&bytes.Buffer{}, nil)
	sink := NewSinkHandler(inner, pub, slog.LevelError)
	logger := New(Config{Handler: sink})

	logger.Error("save failed", FieldError, errors.New("disk full"))
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(pub.events) != 1 || pub.events[0].Attrs[FieldError] != "disk full" {
		t.Fatalf("expected error text in attrs, got %+v", pub.events)
	}
}

// stuckPublisher blocks until released, like a broker that stopped answering.
type stuckPublisher struct {
	release chan struct{}
}

func (p *stuckPublisher) PublishLogEvent(ctx context.Context, _ Event) error {
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return nil
}

func TestSinkHandlerDoesNotBlockOnSlowPublisher(t *testing.T) {
	pub := &stuckPublisher{release: make(chan struct{})}
	sink := NewSinkHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), pub, slog.LevelError)
	logger := New(Config{Handler: sink})

	start := time.Now()
	for i := 0; i < 3*sinkBuffer; i++ {
		logger.Error("save failed", FieldAttempt, i)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("logging blocked on the publisher for %v", elapsed)
	}
	if sink.Dropped() == 0 {
		t.Fatalf("expected events beyond the buffer to be dropped")
	}

	close(pub.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	logger.Error("after close")
	if sink.Dropped() <= sinkBuffer {
		t.Fatalf("unexpected drop count %d", sink.Dropped())
	}
}
