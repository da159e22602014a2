// Package realtime fans committed-mutation events out to connected clients.
package realtime

import (
	"context"
	"log"
	"sync"
	"time"
)

type Event struct {
	Type string    `json:"type"`
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
}

// Publisher is what services depend on. Publish must not block the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Emit publishes when p is non-nil; services keep an optional publisher.
func Emit(ctx context.Context, p Publisher, typ, id string) {
	if p == nil {
		return
	}
	p.Publish(ctx, Event{Type: typ, ID: id, At: time.Now().UTC()})
}

/* ===============================
   In-process hub
=================================*/

type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: map[uint64]chan Event{}, buffer: buffer}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish drops the event for subscribers whose buffer is full.
func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[REALTIME] subscriber %d is slow, dropped %s", id, ev.Type)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
