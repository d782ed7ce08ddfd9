// Package events provides the in-process event bus that decouples the
// domain modules: lead lifecycle changes, outreach results, and import
// outcomes are published here and consumed by the notification layer.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName returns a unique identifier for the event type.
	EventName() string
	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// Bus publishes and subscribes to domain events.
type Bus interface {
	// Publish sends an event to all registered handlers for that event
	// type. Handlers run asynchronously.
	Publish(ctx context.Context, event Event)

	// PublishSync sends an event and waits for all handlers to complete.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the event name returned by
	// Event.EventName().
	Subscribe(eventName string, handler Handler)
}
