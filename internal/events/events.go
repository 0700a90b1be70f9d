// Package events carries pairing lifecycle notifications out of the engine.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type of a lifecycle event.
type Type string

const (
	TypePaired       Type = "paired"
	TypeUnpaired     Type = "unpaired"
	TypeQueueTimeout Type = "queue_timeout"
	TypeQueueAborted Type = "queue_aborted"
)

// Event is the payload delivered to subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	UserID    uint64    `json:"user_id"`
	PartnerID uint64    `json:"partner_id,omitempty"`
	At        time.Time `json:"at"`
}

// New stamps a fresh event id.
func New(t Type, userID, partnerID uint64, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		UserID:    userID,
		PartnerID: partnerID,
		At:        at.UTC(),
	}
}

// Publisher delivers events to the front end.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters Events by type.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
