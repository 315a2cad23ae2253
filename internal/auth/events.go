package auth

import (
	"sync"

	"github.com/sakif/fitness-hub/internal/model"
)

// Hub fans identity events out to subscribers.
//
// Publish calls are serialized, so every subscriber observes transitions in
// the order they were published. Subscribers are called without the hub's
// lock held and may unsubscribe from inside their callback.
type Hub struct {
	publish sync.Mutex // serializes deliveries

	mu   sync.Mutex
	subs map[uint64]func(model.IdentityEvent)
	next uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]func(model.IdentityEvent))}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	hub  *Hub
	id   uint64
	once sync.Once
}

// Unsubscribe stops delivery to this subscriber. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

func (h *Hub) Subscribe(fn func(model.IdentityEvent)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.subs[h.next] = fn
	return &Subscription{hub: h, id: h.next}
}

// Publish delivers ev to every current subscriber.
func (h *Hub) Publish(ev model.IdentityEvent) {
	h.publish.Lock()
	defer h.publish.Unlock()

	h.mu.Lock()
	fns := make([]func(model.IdentityEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
