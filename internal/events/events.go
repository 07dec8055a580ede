// Package events decouples task mutations from their real-time broadcast. The
// API publishes to a Bus; the websocket hub subscribes. Delivery is
// best-effort with no ordering or durability guarantee: a subscriber that was
// not connected when an event fired never sees it.
package events

import (
	"context"
	"encoding/json"
)

// Task event types as seen on the wire.
const (
	TaskCreated = "task:created"
	TaskUpdated = "task:updated"
	TaskDeleted = "task:deleted"
)

// Event is a broadcast envelope. Payload is the expanded task for
// created/updated and {"id": "..."} for deleted.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// New marshals payload into an Event of the given type.
func New(typ string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Payload: b}, nil
}

// DeletedPayload is the body of a task:deleted event.
type DeletedPayload struct {
	ID string `json:"id"`
}

// Handler consumes one event. Handlers must not block.
type Handler func(Event)

// Bus is the publish/subscribe seam between the mutation path and the
// broadcast path.
type Bus interface {
	// Publish fans the event out to all current subscribers.
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers a handler and returns a function removing it.
	Subscribe(h Handler) (unsubscribe func())
	Close() error
}
