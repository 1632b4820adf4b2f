package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Handlers run asynchronously on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(ConfigReloadedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	case LevelsRefreshedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e ConfigReloadedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LevelsRefreshedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
