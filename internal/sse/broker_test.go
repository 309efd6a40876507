package sse

import (
	"strings"
	"testing"
	"time"
)

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d", n)
	}

	b.Publish(Event{Type: "test.event", Data: map[string]string{"k": "v"}})
	msg := recv(t, ch)
	if !strings.HasPrefix(msg, "event: test.event\n") || !strings.Contains(msg, `"k":"v"`) {
		t.Errorf("msg = %q", msg)
	}
	if !strings.HasSuffix(msg, "\n\n") {
		t.Errorf("SSE frame must end with a blank line: %q", msg)
	}
}

func TestEntryEventAndThrottledStale(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()

	b.PublishEntryEvent("updated", "canonized/a.md")
	first := recv(t, ch)
	if !strings.HasPrefix(first, "event: entry.updated\n") || !strings.Contains(first, "canonized/a.md") {
		t.Fatalf("first = %q", first)
	}
	// The first change also marks the report stale.
	if stale := recv(t, ch); !strings.HasPrefix(stale, "event: report.stale\n") {
		t.Fatalf("stale = %q", stale)
	}

	// Within the throttle window further changes emit no second stale event.
	b.PublishEntryEvent("deleted", "canonized/a.md")
	next := recv(t, ch)
	if !strings.HasPrefix(next, "event: entry.deleted\n") {
		t.Fatalf("next = %q", next)
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected extra event %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishRun(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()

	b.PublishRun(map[string]int{"entries": 3})
	msg := recv(t, ch)
	if !strings.HasPrefix(msg, "event: run.completed\n") || !strings.Contains(msg, `"entries":3`) {
		t.Errorf("msg = %q", msg)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount = %d", n)
	}
}

func TestClose_Idempotent(t *testing.T) {
	b := NewBroker(time.Hour)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("client channel should be closed")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount after close = %d", n)
	}

	// Publishing after close must not panic or block.
	b.Publish(Event{Type: "test.event"})
	b.PublishEntryEvent("updated", "x.md")

	if ch := b.Subscribe(); ch == nil {
		t.Error("Subscribe after close should return a closed channel")
	}
}
