package logging_test

import (
	"context"
	"testing"
	"time"

	"shadow-dungeon/engine/logging"
	"shadow-dungeon/engine/logging/sinks"
)

func TestRouterDeliversToEverySink(t *testing.T) {
	first := sinks.NewMemory()
	second := sinks.NewMemory()
	router := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{
		{Name: "first", Sink: first},
		{Name: "second", Sink: second},
	})

	router.Publish(context.Background(), logging.Event{
		Type:     "lifecycle.encounter_spawned",
		Severity: logging.SeverityInfo,
	})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatalf("delivery counts: first=%d second=%d, want 1 each", len(first.Events()), len(second.Events()))
	}
	if got := router.Stats().EventsTotal; got != 1 {
		t.Fatalf("events total = %d, want 1", got)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	memory := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})

	router.Publish(context.Background(), logging.Event{Type: "a", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "b", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "c", Severity: logging.SeverityError})
	router.Close(context.Background())

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "c" {
		t.Fatalf("expected only the error event, got %+v", events)
	}
}

func TestRouterStampsTimeAndFields(t *testing.T) {
	memory := sinks.NewMemory()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "engine"}
	router := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixed }), cfg, []logging.NamedSink{
		{Name: "memory", Sink: memory},
	})

	router.Publish(context.Background(), logging.Event{Type: "x", Severity: logging.SeverityInfo})
	router.Close(context.Background())

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if !events[0].Time.Equal(fixed) {
		t.Fatalf("time = %v, want clock value", events[0].Time)
	}
	if events[0].Extra["service"] != "engine" {
		t.Fatalf("config fields not attached: %+v", events[0].Extra)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	memory := sinks.NewMemory()
	router := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: memory}})
	router.Close(context.Background())

	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(memory.Events()) != 0 {
		t.Fatalf("events accepted after close")
	}
}

func TestWithFieldsDoesNotOverrideExisting(t *testing.T) {
	var captured logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = event
	}), map[string]any{"service": "engine"})

	pub.Publish(context.Background(), logging.Event{Type: "x"}.WithExtra("service", "custom"))
	if captured.Extra["service"] != "custom" {
		t.Fatalf("caller-set field overridden: %+v", captured.Extra)
	}
}
