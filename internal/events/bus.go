package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for lifecycle event broadcasting.
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
// Usage: bus.Publish(ReadyEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ReadyEvent:
		event.Publish(b.dispatcher, e)
	case AllReadyEvent:
		event.Publish(b.dispatcher, e)
	case ShutdownStartedEvent:
		event.Publish(b.dispatcher, e)
	case StoppedEvent:
		event.Publish(b.dispatcher, e)
	case LaunchFailedEvent:
		event.Publish(b.dispatcher, e)
	case WatchErrorEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e ReadyEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReadyEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AllReadyEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ShutdownStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LaunchFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WatchErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
