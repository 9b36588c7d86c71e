// Package events provides the process-local publish/subscribe channel used
// for connection lifecycle and script notifications.
package events

import (
	"sync"
	"sync/atomic"
)

// Event is a published notification. Connection carries the owning
// connection name where one applies; Args carry the original transport
// signal arguments verbatim.
type Event struct {
	Name       string
	Connection string
	Args       []any
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

type subscription struct {
	name    string
	all     bool
	handler Handler
}

// Bus fans events out to registered handlers. The zero value is not usable;
// construct with NewBus. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID atomic.Uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]subscription)}
}

// Subscribe registers a handler for events with the given name. The returned
// function cancels the subscription and may be called multiple times.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	return b.add(subscription{name: name, handler: handler})
}

// SubscribeAll registers a handler invoked for every published event.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.add(subscription{all: true, handler: handler})
}

func (b *Bus) add(sub subscription) func() {
	if sub.handler == nil {
		return func() {}
	}
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every matching handler. Handlers registered
// while a publish is in flight do not receive that event.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.all || sub.name == event.Name {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(event)
	}
}
