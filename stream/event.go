// Package stream provides broadcast channels for queue lifecycle events.
// Each channel retains its most recent event and replays it to new
// subscribers, so a subscriber arriving late still observes the current
// state as its first event.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// EventTaskState is emitted whenever a queue item changes state.
	EventTaskState EventType = "task.state"
	// EventQueueState is emitted whenever the queue as a whole changes
	// state (idle, processing, paused, cancelled).
	EventQueueState EventType = "queue.state"
	// EventQueueCount is emitted whenever the remaining item count
	// (pending + active) changes.
	EventQueueCount EventType = "queue.count"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// TaskEventData is the payload for task state events.
type TaskEventData struct {
	TaskID  string `json:"task_id"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
	Elapsed int64  `json:"elapsed_ms,omitempty"`
}

// QueueEventData is the payload for queue state events.
type QueueEventData struct {
	State string `json:"state"`
}

// CountEventData is the payload for remaining-count events.
type CountEventData struct {
	Remaining int `json:"remaining"`
}

// NewEvent builds an event envelope, marshaling the payload.
// It panics if the payload cannot be marshaled (programming error).
func NewEvent(typ EventType, data any) *Event {
	raw, err := json.Marshal(data)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return &Event{
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}
}
