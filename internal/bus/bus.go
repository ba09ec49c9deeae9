// Package bus implements the per-hat FIFO event queues and observer
// fan-out that the scheduler routes events through.
package bus

import (
	"sync"

	"github.com/ralph-loop/ralph/internal/hat"
	"github.com/ralph-loop/ralph/internal/topic"
)

// Observer receives every published event, in publish order, before
// it is enqueued for any subscriber. Observers are side-effect-only
// (history recorders, TUI appenders) and never block routing.
type Observer func(topic.Event)

// Bus is a mapping from hat id to an ordered pending-event queue, plus
// an ordered list of observers. It is safe for concurrent use, though
// the scheduler that owns it is itself single-threaded per iteration.
type Bus struct {
	mu        sync.Mutex
	hats      map[string]hat.Hat
	order     []string // registration order
	queues    map[string][]topic.Event
	observers []Observer
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{
		hats:   make(map[string]hat.Hat),
		queues: make(map[string][]topic.Event),
	}
}

// Register adds a hat to the bus's routing table. Registering a hat id
// twice replaces the earlier registration without disturbing queue
// order.
func (b *Bus) Register(h hat.Hat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.hats[h.ID]; !exists {
		b.order = append(b.order, h.ID)
	}
	b.hats[h.ID] = h
}

// AddObserver appends fn to the observer list.
func (b *Bus) AddObserver(fn Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

// Publish delivers e to every observer (in insertion order), then
// enqueues it for every hat whose subscription set matches e.Topic. If
// e carries an explicit Target, delivery is restricted to that hat
// regardless of subscriptions, and an event whose Target names no
// registered hat reaches observers only — loop.terminate uses this so
// that no hat is triggered by it.
func (b *Bus) Publish(e topic.Event) {
	b.mu.Lock()
	observers := append([]Observer(nil), b.observers...)
	b.mu.Unlock()

	for _, obs := range observers {
		obs(e)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if e.Target != "" {
		if _, ok := b.hats[e.Target]; ok {
			b.queues[e.Target] = append(b.queues[e.Target], e)
		}
		return
	}

	for _, id := range b.order {
		if b.hats[id].Subscribes(e.Topic) {
			b.queues[id] = append(b.queues[id], e)
		}
	}
}

// TakePending removes and returns every pending event for hatID, in
// FIFO order.
func (b *Bus) TakePending(hatID string) []topic.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queues[hatID]
	delete(b.queues, hatID)
	return q
}

// PeekPending returns the pending events for hatID without removing
// them.
func (b *Bus) PeekPending(hatID string) []topic.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]topic.Event(nil), b.queues[hatID]...)
}

// HasPending reports whether hatID has at least one queued event.
func (b *Bus) HasPending(hatID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[hatID]) > 0
}

// NextHatWithPending iterates hats in registration order and returns
// the first with a non-empty queue.
func (b *Bus) NextHatWithPending() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.order {
		if len(b.queues[id]) > 0 {
			return id, true
		}
	}
	return "", false
}

// PendingByHat returns a snapshot of every hat with pending events.
// Queue order is preserved per hat; iteration order over the returned
// map is the caller's job (the prompt composer sorts hat ids before
// rendering).
func (b *Bus) PendingByHat() map[string][]topic.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]topic.Event, len(b.queues))
	for id, q := range b.queues {
		if len(q) == 0 {
			continue
		}
		out[id] = append([]topic.Event(nil), q...)
	}
	return out
}
