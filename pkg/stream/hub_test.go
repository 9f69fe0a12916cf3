package stream

import (
	"encoding/json"
	"testing"
)

func TestHubDeliversToEverySubscriber(t *testing.T) {
	h := NewHub()
	a := h.Subscribe(4)
	b := h.Subscribe(4)
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(NewEvent(EventDecision, map[string]string{"decision": "PERMIT"}))
	for name, ch := range map[string]chan Event{"a": a, "b": b} {
		select {
		case evt := <-ch:
			if evt.Type != EventDecision {
				t.Fatalf("%s: type = %q", name, evt.Type)
			}
			var data map[string]string
			if err := json.Unmarshal(evt.Data, &data); err != nil || data["decision"] != "PERMIT" {
				t.Fatalf("%s: data = %s err=%v", name, evt.Data, err)
			}
		default:
			t.Fatalf("%s: no event delivered", name)
		}
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	h := NewHub()
	slow := h.Subscribe(1)
	defer h.Unsubscribe(slow)

	// Fill the buffer and keep publishing; the call must return regardless.
	for i := 0; i < 10; i++ {
		h.Publish(NewEvent(EventConsent, nil))
	}
	if len(slow) != 1 {
		t.Fatalf("buffered = %d, overflow must be dropped", len(slow))
	}
}

func TestHubUnsubscribeClosesOnce(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe(1)
	h.Unsubscribe(ch)
	// A second unsubscribe of the same channel must be a no-op, not a double
	// close panic.
	h.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("channel must be closed after unsubscribe")
	}
	h.Publish(NewEvent(EventDecision, nil))
}

func TestNewEventOmitsNilData(t *testing.T) {
	evt := NewEvent(EventDecision, nil)
	if evt.Data != nil {
		t.Fatalf("data = %s, want empty", evt.Data)
	}
	if evt.At == "" {
		t.Fatal("timestamp missing")
	}
}
