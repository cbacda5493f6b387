package memory

import "sync"

// Lifecycle events emitted by connection-class commands.
const (
	EventConnect    = "connect"
	EventReady      = "ready"
	EventDisconnect = "disconnect"
	EventEnd        = "end"
)

// EventHandler receives the payload passed to Emit.
type EventHandler func(payload any)

// Subscription identifies a registered handler for removal.
type Subscription struct {
	event string
	id    uint64
}

type listener struct {
	id   uint64
	once bool
	fn   EventHandler
}

// EventBus is a per-instance typed observer for connection-lifecycle
// notifications. Emit iterates a snapshot taken at call time, so handlers
// registered during an emit are not invoked within that same pass.
type EventBus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]listener
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[string][]listener)}
}

// On registers a handler for event and returns its subscription.
func (b *EventBus) On(event string, fn EventHandler) Subscription {
	return b.add(event, fn, false)
}

// Once registers a handler that is removed after its first invocation.
func (b *EventBus) Once(event string, fn EventHandler) Subscription {
	return b.add(event, fn, true)
}

func (b *EventBus) add(event string, fn EventHandler, once bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[event] = append(b.handlers[event], listener{id: b.nextID, once: once, fn: fn})
	return Subscription{event: event, id: b.nextID}
}

// Off removes the subscribed handler and reports whether it was present.
func (b *EventBus) Off(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	listeners := b.handlers[sub.event]
	for i, l := range listeners {
		if l.id == sub.id {
			b.handlers[sub.event] = append(listeners[:i], listeners[i+1:]...)
			if len(b.handlers[sub.event]) == 0 {
				delete(b.handlers, sub.event)
			}
			return true
		}
	}
	return false
}

// RemoveAllListeners drops handlers for the given events, or for every
// event when none are named.
func (b *EventBus) RemoveAllListeners(events ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(events) == 0 {
		b.handlers = make(map[string][]listener)
		return
	}
	for _, event := range events {
		delete(b.handlers, event)
	}
}

// Emit invokes the handlers registered for event at the moment of the call
// and returns how many ran. Once-handlers are removed before invocation.
func (b *EventBus) Emit(event string, payload any) int {
	b.mu.Lock()
	listeners := b.handlers[event]
	snapshot := make([]listener, len(listeners))
	copy(snapshot, listeners)

	remaining := listeners[:0]
	for _, l := range listeners {
		if !l.once {
			remaining = append(remaining, l)
		}
	}
	if len(remaining) == 0 {
		delete(b.handlers, event)
	} else {
		b.handlers[event] = remaining
	}
	b.mu.Unlock()

	for _, l := range snapshot {
		l.fn(payload)
	}
	return len(snapshot)
}

// ListenerCount reports how many handlers are registered for event.
func (b *EventBus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[event])
}
