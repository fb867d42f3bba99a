package logging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
	fail   error
}

func (s *captureSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newCaptureRouter(t *testing.T, cfg Config) (*Router, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	router, err := NewRouter(ClockFunc(func() time.Time { return fixedTime }), cfg, []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return router, sink
}

func TestRouterDeliversOnClose(t *testing.T) {
	router, sink := newCaptureRouter(t, DefaultConfig())

	router.Publish(context.Background(), Event{Type: "lifecycle.player_joined", Severity: SeverityInfo, Category: CategoryGameplay})
	router.Publish(context.Background(), Event{Type: "collision.player_killed", Severity: SeverityInfo, Category: CategoryCollision})
	router.Publish(context.Background(), Event{Severity: SeverityInfo})

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].Time.Equal(fixedTime) {
		t.Fatalf("expected router clock to stamp events, got %v", events[0].Time)
	}
	if !sink.closed {
		t.Fatalf("expected sink to be closed")
	}
	stats := router.Stats()
	if stats.EventsTotal != 2 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	metrics := router.Metrics().Snapshot()
	if metrics["events.gameplay"] != 1 || metrics["events.collision"] != 1 {
		t.Fatalf("unexpected category counters: %v", metrics)
	}
}

func TestRouterFiltersBySeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinimumSeverity = SeverityWarn
	router, sink := newCaptureRouter(t, cfg)

	router.Publish(context.Background(), Event{Type: "network.frame_discarded", Severity: SeverityDebug})
	router.Publish(context.Background(), Event{Type: "simulation.phase_panic", Severity: SeverityError})
	router.Close(context.Background())

	events := sink.snapshot()
	if len(events) != 1 || events[0].Type != "simulation.phase_panic" {
		t.Fatalf("expected only the error event, got %+v", events)
	}
}

func TestRouterStampsStaticFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fields = map[string]any{"arena": "main", "session": "default"}
	router, sink := newCaptureRouter(t, cfg)

	router.Publish(context.Background(), Event{Type: "lifecycle.player_joined", Severity: SeverityInfo, Extra: map[string]any{"session": "s1"}})
	router.Close(context.Background())

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["arena"] != "main" {
		t.Fatalf("expected static field, got %v", events[0].Extra)
	}
	if events[0].Extra["session"] != "s1" {
		t.Fatalf("expected explicit extra to win, got %v", events[0].Extra["session"])
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	router, sink := newCaptureRouter(t, DefaultConfig())
	router.Close(context.Background())

	router.Publish(context.Background(), Event{Type: "lifecycle.player_joined", Severity: SeverityInfo})
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("expected no events after close, got %d", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := router.Close(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected second close to report ctx error, got %v", err)
	}
}

func TestDropThrottle(t *testing.T) {
	throttle := dropThrottle{interval: time.Second}
	start := fixedTime

	if !throttle.allow(start) {
		t.Fatalf("expected first drop to be reported")
	}
	if throttle.allow(start.Add(500 * time.Millisecond)) {
		t.Fatalf("expected drops within the interval to be muted")
	}
	if !throttle.allow(start.Add(time.Second)) {
		t.Fatalf("expected reporting to resume after the interval")
	}
}

func TestConfigNormalized(t *testing.T) {
	cfg := Config{EnabledSinks: []string{" Console", "json", "", "console"}}.Normalized()

	if len(cfg.EnabledSinks) != 2 || cfg.EnabledSinks[0] != "console" || cfg.EnabledSinks[1] != "json" {
		t.Fatalf("unexpected sinks: %v", cfg.EnabledSinks)
	}
	if cfg.BufferSize != DefaultBufferSize || cfg.DropWarnInterval != DefaultDropWarnInterval {
		t.Fatalf("expected defaults to be filled, got %+v", cfg)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{"debug": SeverityDebug, " INFO ": SeverityInfo, "warning": SeverityWarn, "error": SeverityError}
	for raw, want := range cases {
		got, ok := ParseSeverity(raw)
		if !ok || got != want {
			t.Fatalf("ParseSeverity(%q) = %v, %v", raw, got, ok)
		}
	}
	if _, ok := ParseSeverity("loud"); ok {
		t.Fatalf("expected unknown severity to be rejected")
	}
}
