package event

import (
	"context"

	"github.com/larder/backend/internal/domain/inventory"
	"go.uber.org/zap"
)

// InMemoryEventBus is an inventory.EventSink that dispatches synchronously
// to registered handlers. Handler errors and panics are logged and never
// reach the publisher.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish dispatches events in order to every matching handler
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...inventory.Event) {
	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.Kind) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("handler", handler.Name()),
					zap.String("event_kind", string(event.Kind)),
					zap.String("event_id", event.ID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// Subscribe registers a handler; with no kinds it receives every event
func (b *InMemoryEventBus) Subscribe(handler Handler, kinds ...inventory.EventKind) {
	b.registry.Register(handler, kinds...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", handler.Name()),
		zap.Int("kinds", len(kinds)),
	)
}

// Unsubscribe removes a handler by name
func (b *InMemoryEventBus) Unsubscribe(name string) {
	b.registry.Unregister(name)
	b.logger.Debug("handler unsubscribed", zap.String("handler", name))
}

// Handlers returns the subscribed handler names
func (b *InMemoryEventBus) Handlers() []string {
	return b.registry.Names()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler Handler, event inventory.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("handler", handler.Name()),
				zap.String("event_kind", string(event.Kind)),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ inventory.EventSink = (*InMemoryEventBus)(nil)
