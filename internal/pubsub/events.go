// Package pubsub provides a generic publish/subscribe event system.
// Registrar uses it to fan out log lines and registry change notifications
// to goroutines that sit outside the reactive graph (the catalog browser, CLI tails).
package pubsub

import (
	"context"
	"time"
)

// EventType says what happened to the payload.
type EventType string

const (
	// CreatedEvent carries a new item, such as a log line.
	CreatedEvent EventType = "created"
	// UpdatedEvent reports that some registry state changed.
	UpdatedEvent EventType = "updated"
	// ReloadedEvent follows a full reread of manifests and extensions.
	ReloadedEvent EventType = "reloaded"
)

// Event is one delivery to a subscriber.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out subscription channels. Consumers that only read
// events should depend on this rather than on *Broker.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes events.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
