package progressbus

import (
	"context"
	"sync"
)

// Event is one recorded EmitJobUpdate call, captured by InMemoryBus for
// tests that assert on exact bus traffic.
type Event struct {
	UserID  string
	Type    UpdateType
	Payload interface{}
}

// InMemoryBus collects emitted events in order; used by tests and by the
// worker when no Redis connection is configured.
type InMemoryBus struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{}
}

func (b *InMemoryBus) EmitJobUpdate(_ context.Context, userID string, updateType UpdateType, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{UserID: userID, Type: updateType, Payload: payload})
	return nil
}

// Events returns a snapshot copy of every event recorded so far.
func (b *InMemoryBus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}
