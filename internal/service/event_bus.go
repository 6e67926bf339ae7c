// internal/service/event_bus.go
package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types published by the PLC service
const (
	EventSnapshot   = "snapshot"   // full field snapshot after a read
	EventFieldSet   = "field_set"  // local value changed, pending write
	EventWrite      = "write"      // dirty fields flushed to the device
	EventConnection = "connection" // session state changed
)

// Event represents one notification to subscribers
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventBus distributes service events to subscribers. Slow
// subscribers are skipped, never waited on, matching the
// drop-on-full queue discipline of the data-change notifications
// this replaces.
type EventBus struct {
	subscribers []chan Event
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger: logger.With(zap.String("component", "event-bus")),
	}
}

// Subscribe registers a new subscriber channel
func (eb *EventBus) Subscribe() <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan Event, 100)
	eb.subscribers = append(eb.subscribers, subscriber)
	return subscriber
}

// Unsubscribe removes a subscriber and closes its channel
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for i, subscriber := range eb.subscribers {
		if (<-chan Event)(subscriber) == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			close(subscriber)
			return
		}
	}
}

// Publish delivers an event to every subscriber that can take it
func (eb *EventBus) Publish(event Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, subscriber := range eb.subscribers {
		select {
		case subscriber <- event:
		default:
			eb.logger.Warn("Subscriber queue full, dropping event",
				zap.String("event_type", event.Type),
			)
		}
	}
}
