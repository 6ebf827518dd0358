// Package events publishes notifications about committed state changes.
// Publishing happens after the store write succeeded; a failed publish is
// logged and never undoes or fails the operation.
package events

import (
	"context"
	"sync"
	"time"

	"restaurantcore/pkg/logger"
)

// Event types.
const (
	InventoryMovementRecorded = "inventory.movement_recorded"
	InventoryLowStock         = "inventory.low_stock"
	ReservationCreated        = "reservation.created"
	ReservationStatusChanged  = "reservation.status_changed"
	OrderCreated              = "order.created"
	OrderStatusChanged        = "order.status_changed"
)

// Event is one notification. Key groups events of the same entity onto one
// partition.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// New stamps an event with the current time.
func New(typ, key string, data any) Event {
	return Event{Type: typ, Key: key, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }

// Emit publishes evs and logs instead of returning a failure.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, evs ...Event) {
	if p == nil || len(evs) == 0 {
		return
	}
	if err := p.Publish(ctx, evs...); err != nil {
		log.Warn(ctx, "publish events", "error", err, "type", evs[0].Type, "key", evs[0].Key, "count", len(evs))
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu  sync.Mutex
	evs []Event
}

func (r *Recorder) Publish(_ context.Context, evs ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, evs...)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.evs...)
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(typ string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
