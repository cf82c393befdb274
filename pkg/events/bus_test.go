package events

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.On("ping", func(payload any) { got = append(got, "a:"+payload.(string)) })
	bus.On("ping", func(payload any) { got = append(got, "b:"+payload.(string)) })
	bus.On("other", func(any) { got = append(got, "other") })

	if n := bus.Emit("ping", "1"); n != 2 {
		t.Fatalf("expected 2 handlers invoked, got %d", n)
	}
	if diff := cmp.Diff([]string{"a:1", "b:1"}, got); diff != "" {
		t.Fatalf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestBusOff(t *testing.T) {
	bus := NewBus()
	calls := 0
	sub := bus.On("ping", func(any) { calls++ })
	if sub.ID == "" || sub.Event != "ping" {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if !bus.Off(sub) {
		t.Fatalf("expected handler to be removed")
	}
	if bus.Off(sub) {
		t.Fatalf("expected second removal to report false")
	}
	bus.Emit("ping", nil)
	if calls != 0 || bus.Count("ping") != 0 {
		t.Fatalf("expected no deliveries after Off, got %d", calls)
	}
	if bus.On("ping", nil) != (Subscription{}) {
		t.Fatalf("expected nil handler to be ignored")
	}
}

func TestBusHandlersMayMutateDuringEmit(t *testing.T) {
	bus := NewBus()
	var got []string
	var self Subscription
	self = bus.On("ping", func(any) {
		got = append(got, "self")
		bus.Off(self)
		bus.On("ping", func(any) { got = append(got, "late") })
	})

	bus.Emit("ping", nil)
	bus.Emit("ping", nil)
	if diff := cmp.Diff([]string{"self", "late"}, got); diff != "" {
		t.Fatalf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestBusOnce(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Once("ping", func(any) { calls++ })
	bus.Emit("ping", nil)
	bus.Emit("ping", nil)
	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}
}
