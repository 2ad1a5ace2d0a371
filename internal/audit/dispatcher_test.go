package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "login"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops on nil dispatcher")
	}
}

func TestDispatcherFlushesOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "login"})
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "login"})
	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected emit after close to be ignored, got %d", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	var logs bytes.Buffer
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		Logger:     zerolog.New(&logs),
	}, sink)

	// The first event is held by the blocked sink, the second fills the buffer.
	d.Emit(context.Background(), Event{EventType: "otp_request"})
	time.Sleep(20 * time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "otp_request"})
	for i := 0; i < 4; i++ {
		d.Emit(context.Background(), Event{EventType: "otp_request"})
	}

	if got := d.Dropped(); got != 4 {
		t.Fatalf("expected 4 drops, got %d", got)
	}
	// Warnings at 1, 2 and 4.
	if n := strings.Count(logs.String(), "audit buffer full"); n != 3 {
		t.Fatalf("expected 3 drop warnings, got %d: %s", n, logs.String())
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: "refresh"})
	time.Sleep(20 * time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "refresh"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "refresh"})

	if got := d.Dropped(); got != 1 {
		t.Fatalf("expected the cancelled emit to count as dropped, got %d", got)
	}

	close(sink.gate)
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "logout", UserID: "u1", Success: true})

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["event_type"] != "logout" || decoded["user_id"] != "u1" {
		t.Fatalf("unexpected record %v", decoded)
	}
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	sink.Emit(context.Background(), Event{EventType: "login", Success: true, UserID: "u1"})
	sink.Emit(context.Background(), Event{EventType: "login", Error: "user.invalidPassword", Phone: "+1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"level":"info"`) || !strings.Contains(lines[0], `"user_id":"u1"`) {
		t.Fatalf("unexpected success line %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"warn"`) || !strings.Contains(lines[1], `"error":"user.invalidPassword"`) {
		t.Fatalf("unexpected failure line %s", lines[1])
	}
}
