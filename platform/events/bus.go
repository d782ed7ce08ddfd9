package events

import (
	"context"
	"fmt"
	"sync"

	"dealflow_backend/platform/logger"
)

// InMemoryBus is a simple synchronous/asynchronous event bus backed by an
// in-process handler registry. It is suitable for single-instance deployments;
// handlers must tolerate at-most-once delivery.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish sends an event to all registered handlers asynchronously.
// Handler errors are logged, not returned.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil && b.log != nil {
					b.log.Error("event handler panic",
						"event", event.EventName(),
						"panic", fmt.Sprintf("%v", r),
					)
				}
			}()
			if err := h.Handle(context.WithoutCancel(ctx), event); err != nil && b.log != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err.Error(),
				)
			}
		}(handler)
	}
}

// PublishSync sends an event and waits for all handlers to complete.
// The first handler error aborts the remaining handlers.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			return fmt.Errorf("handle %s: %w", event.EventName(), err)
		}
	}
	return nil
}
