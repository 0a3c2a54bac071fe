package cronmgr

import (
	"sync"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// eventBroadcastCapacity is the per-subscriber channel capacity. Go has no
// tokio::broadcast equivalent, and no package in the example corpus provides
// one either, so the hub is hand-rolled: lossy, non-blocking sends.
const eventBroadcastCapacity = 100

// eventHub fans a single published Event out to every live subscriber,
// dropping it for any subscriber whose channel is full.
type eventHub struct {
	mu   sync.Mutex
	subs []chan cronmodel.Event
}

func newEventHub() *eventHub {
	return &eventHub{}
}

// subscribe returns a new receive-only channel that will observe every
// event published after this call.
func (h *eventHub) subscribe() <-chan cronmodel.Event {
	ch := make(chan cronmodel.Event, eventBroadcastCapacity)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

// publish delivers e to every subscriber without blocking; slow subscribers
// silently miss events rather than stalling the publisher.
func (h *eventHub) publish(e cronmodel.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
