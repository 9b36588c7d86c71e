package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe("connectionEstablished", func(e Event) {
		got = append(got, e)
	})

	bus.Publish(Event{Name: "connectionEstablished", Connection: "cache"})
	bus.Publish(Event{Name: "connectionClosed", Connection: "cache"})

	require.Len(t, got, 1)
	require.Equal(t, "cache", got[0].Connection)
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewBus()

	var names []string
	bus.SubscribeAll(func(e Event) {
		names = append(names, e.Name)
	})

	bus.Publish(Event{Name: "a"})
	bus.Publish(Event{Name: "b"})

	require.Equal(t, []string{"a", "b"}, names)
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := NewBus()

	count := 0
	cancel := bus.Subscribe("tick", func(Event) { count++ })

	bus.Publish(Event{Name: "tick"})
	cancel()
	cancel() // idempotent
	bus.Publish(Event{Name: "tick"})

	require.Equal(t, 1, count)
}

func TestNilHandlerIgnored(t *testing.T) {
	bus := NewBus()
	cancel := bus.Subscribe("tick", nil)
	cancel()
	bus.Publish(Event{Name: "tick"})
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancel := bus.Subscribe("load", func(Event) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			defer cancel()
			for j := 0; j < 50; j++ {
				bus.Publish(Event{Name: "load"})
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Positive(t, total)
}
