package http

import (
	"sync"

	"rtlab-dashboard/internal/domain"
)

// EventHub fans simulator events out to connected SSE clients. Within one
// connection events are delivered in broadcast order; across connections
// there is no ordering relationship.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[chan domain.Event]struct{})}
}

// Subscribe registers a new client channel.
func (h *EventHub) Subscribe() chan domain.Event {
	ch := make(chan domain.Event, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a client channel.
func (h *EventHub) Unsubscribe(ch chan domain.Event) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Broadcast delivers an event to every subscriber. A slow client's full
// buffer drops the event for that client rather than blocking the simulator.
func (h *EventHub) Broadcast(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
