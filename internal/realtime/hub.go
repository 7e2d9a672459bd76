// Package realtime fans change notifications out to live-feed subscribers.
//
// The hub carries signals, not data: a subscriber that receives a signal is
// expected to reload the full collection and replace its snapshot wholesale.
// Signals are coalesced: a slow subscriber sees at most one pending signal,
// which is sufficient because every reload observes the latest state anyway.
package realtime

import "sync"

// Topic names a collection whose changes are broadcast.
type Topic string

const (
	TopicCatalog Topic = "catalog_changed"
	TopicSales   Topic = "sales_changed"
)

// Hub is an in-process, per-topic change broadcaster.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[Topic]map[int]chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[Topic]map[int]chan struct{})}
}

// Subscribe registers a listener on topic. The returned channel receives a
// signal after every Notify; the cancel func disposes the subscription and is
// safe to call more than once.
func (h *Hub) Subscribe(topic Topic) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan struct{}, 1)
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]chan struct{})
	}
	h.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], id)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Notify signals every subscriber of topic without blocking. A subscriber
// with a signal already pending is skipped; the pending signal covers it.
func (h *Hub) Notify(topic Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
