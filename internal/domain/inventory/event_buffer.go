package inventory

import (
	"context"
	"sync"
)

// EventBuffer is an EventSink that holds events until FlushTo, so events of
// a unit of work are only delivered once it has committed
type EventBuffer struct {
	mu     sync.Mutex
	events []Event
}

// NewEventBuffer creates an empty buffer
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{events: make([]Event, 0)}
}

// Publish appends events
func (b *EventBuffer) Publish(_ context.Context, events ...Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
}

// Events returns a copy of the buffered events
func (b *EventBuffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Len returns the number of buffered events
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// FlushTo publishes everything buffered to sink and empties the buffer
func (b *EventBuffer) FlushTo(ctx context.Context, sink EventSink) int {
	b.mu.Lock()
	events := b.events
	b.events = make([]Event, 0)
	b.mu.Unlock()

	if len(events) > 0 {
		sink.Publish(ctx, events...)
	}
	return len(events)
}

// Reset drops everything buffered
func (b *EventBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make([]Event, 0)
}
