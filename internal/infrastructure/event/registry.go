package event

import (
	"context"
	"sync"

	"github.com/larder/backend/internal/domain/inventory"
)

// Handler consumes inventory events dispatched by the bus
type Handler interface {
	Name() string
	Handle(ctx context.Context, event inventory.Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, event inventory.Event) error
}

// Name returns the handler name
func (h HandlerFunc) Name() string { return h.HandlerName }

// Handle calls Fn
func (h HandlerFunc) Handle(ctx context.Context, event inventory.Event) error {
	return h.Fn(ctx, event)
}

// HandlerRegistry manages handler registrations by event kind
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[inventory.EventKind][]Handler
	wildcard []Handler // handlers for all events
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[inventory.EventKind][]Handler),
		wildcard: make([]Handler, 0),
	}
}

// Register adds a handler for specific kinds.
// If no kinds are provided, the handler receives all events.
func (r *HandlerRegistry) Register(handler Handler, kinds ...inventory.EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(kinds) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, kind := range kinds {
		r.handlers[kind] = append(r.handlers[kind], handler)
	}
}

// Unregister removes every handler with the given name
func (r *HandlerRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, name)
	for kind, handlers := range r.handlers {
		r.handlers[kind] = removeHandler(handlers, name)
		if len(r.handlers[kind]) == 0 {
			delete(r.handlers, kind)
		}
	}
}

// GetHandlers returns kind-specific handlers followed by wildcard handlers
func (r *HandlerRegistry) GetHandlers(kind inventory.EventKind) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.handlers[kind]
	result := make([]Handler, 0, len(typed)+len(r.wildcard))
	result = append(result, typed...)
	result = append(result, r.wildcard...)
	return result
}

// Names returns the distinct registered handler names
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	result := make([]string, 0)
	add := func(h Handler) {
		if !seen[h.Name()] {
			seen[h.Name()] = true
			result = append(result, h.Name())
		}
	}
	for _, h := range r.wildcard {
		add(h)
	}
	for _, handlers := range r.handlers {
		for _, h := range handlers {
			add(h)
		}
	}
	return result
}

func removeHandler(handlers []Handler, name string) []Handler {
	result := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}
