package cache

import "time"

// Event represents a cache lifecycle event.
// Minimal and stable: name + key and optional fields via key/values.
type Event struct {
	Name   string
	Key    string
	At     time.Time
	Fields map[string]any
}

// Event names emitted by the cache.
const (
	EventHit       = "hit"
	EventMiss      = "miss"
	EventEvict     = "evict"
	EventLoadStart = "load_start"
	EventLoadEnd   = "load_end"
	EventError     = "error"
)

// EventPublisher receives events from the cache. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
