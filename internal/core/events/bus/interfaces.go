package bus

import "time"

// EventBus is the in-process pub/sub bus the simulation raises events on.
// Delivery is synchronous and handlers of one event type run in the order
// they subscribed, so a tick replays identically given identical inputs.
type EventBus interface {
	// Publish delivers event to every subscriber of event.Type(). Handler
	// errors are joined and returned; every handler still runs.
	Publish(event Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. It is safe to call with nil.
	Unsubscribe(sub Subscription) error
	HasSubscribers(eventType string) bool
	Stats() Stats
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

// EventHandler is invoked per delivered event.
type EventHandler func(event Event) error

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Stats counts bus traffic since creation.
type Stats struct {
	Published   uint64 `json:"published"`
	Delivered   uint64 `json:"delivered"`
	Errors      uint64 `json:"errors"`
	Subscribers int    `json:"subscribers"`
}
