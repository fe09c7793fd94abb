package events

import (
	"context"
	"time"
)

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher is satisfied by a broker client. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder keeps published events in memory, for tests and local runs
// without a broker.
type Recorder struct {
	events chan Event
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{events: make(chan Event, capacity)}
}

// Publish drops the event when the buffer is full.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	select {
	case r.events <- event:
	default:
	}
	return nil
}

// Drain returns everything recorded so far.
func (r *Recorder) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-r.events:
			out = append(out, e)
		default:
			return out
		}
	}
}
