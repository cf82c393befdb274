// Package events provides a small synchronous publish/subscribe bus.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Handler receives the payload published for an event name.
type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed later.
type Subscription struct {
	ID    string
	Event string
}

type entry struct {
	id      string
	handler Handler
}

// Bus delivers payloads to handlers registered per event name, in
// registration order, on the caller's goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]entry)}
}

// On registers handler for event. A nil handler is ignored and yields a zero
// Subscription.
func (b *Bus) On(event string, handler Handler) Subscription {
	if handler == nil {
		return Subscription{}
	}
	sub := Subscription{ID: uuid.NewString(), Event: event}
	b.mu.Lock()
	if b.handlers == nil {
		b.handlers = make(map[string][]entry)
	}
	b.handlers[event] = append(b.handlers[event], entry{id: sub.ID, handler: handler})
	b.mu.Unlock()
	return sub
}

// Once registers handler for a single delivery.
func (b *Bus) Once(event string, handler Handler) Subscription {
	if handler == nil {
		return Subscription{}
	}
	var sub Subscription
	var once sync.Once
	sub = b.On(event, func(payload any) {
		once.Do(func() {
			b.Off(sub)
			handler(payload)
		})
	})
	return sub
}

// Off removes the handler registered under sub and reports whether it was
// present.
func (b *Bus) Off(sub Subscription) bool {
	if sub.ID == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.handlers[sub.Event]
	for i, e := range current {
		if e.id != sub.ID {
			continue
		}
		next := make([]entry, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, sub.Event)
		} else {
			b.handlers[sub.Event] = next
		}
		return true
	}
	return false
}

// Emit delivers payload to the handlers registered for event at the time of
// the call and returns how many were invoked. Handlers added or removed
// during delivery take effect on the next Emit.
func (b *Bus) Emit(event string, payload any) int {
	b.mu.RLock()
	current := b.handlers[event]
	b.mu.RUnlock()
	for _, e := range current {
		e.handler(payload)
	}
	return len(current)
}

// Count returns the number of handlers registered for event.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
