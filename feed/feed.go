// Package feed implements the push-based post-set subscription stream.
// Producers publish snapshots of the active post set; subscribers receive
// them over channels. Delivery is at-least-once and lossy-latest: a slow
// subscriber skips intermediate snapshots but always sees the newest one,
// and the same snapshot may be delivered more than once. Consumers must be
// idempotent (the matcher is; the fanout dedupes by post id).
package feed

import (
	"log"
	"sync"

	"kolekta/objects"
)

// Snapshot is one delivered view of the post set.
type Snapshot []*objects.ExchangePost

// Filter narrows what a subscriber receives.
type Filter struct {
	ExcludeUserID int64  // drop this user's own posts, 0 keeps all
	Status        string // keep only this status, "" keeps all
}

// Subscription is one consumer's handle on the stream.
type Subscription struct {
	id     int64
	filter Filter
	C      chan Snapshot
	hub    *Hub
}

// Close detaches the subscription from the hub and closes C.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}

// Hub fans post-set snapshots out to subscribers.
type Hub struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]*Subscription
}

func NewHub() *Hub {
	log.Println("[FEED] Subscription hub initialized")
	return &Hub{subs: make(map[int64]*Subscription)}
}

// Subscribe registers a consumer. The returned channel is buffered; when it
// is full the oldest undelivered snapshot is dropped in favor of the newest.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		filter: filter,
		C:      make(chan Snapshot, 8),
		hub:    h,
	}
	h.subs[sub.id] = sub

	log.Printf("[FEED] Subscriber %d registered (%d total)", sub.id, len(h.subs))
	return sub
}

func (h *Hub) unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.C)
	log.Printf("[FEED] Subscriber %d removed (%d remaining)", id, len(h.subs))
}

// Publish delivers a snapshot to every subscriber. Each subscriber gets its
// own filtered copy so consumers can never corrupt each other's view.
func (h *Hub) Publish(snapshot Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	log.Printf("[FEED] Publishing snapshot of %d posts to %d subscribers", len(snapshot), len(h.subs))

	for _, sub := range h.subs {
		filtered := applyFilter(snapshot, sub.filter)
		for {
			select {
			case sub.C <- filtered:
			default:
				// Buffer full: drop the oldest undelivered snapshot and
				// retry so the subscriber converges on the latest state.
				select {
				case <-sub.C:
				default:
				}
				continue
			}
			break
		}
	}
}

// SubscriberCount reports the current number of subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func applyFilter(snapshot Snapshot, filter Filter) Snapshot {
	out := make(Snapshot, 0, len(snapshot))
	for _, post := range snapshot {
		if post == nil {
			continue
		}
		if filter.ExcludeUserID != 0 && post.UserID == filter.ExcludeUserID {
			continue
		}
		if filter.Status != "" && post.Status != filter.Status {
			continue
		}
		out = append(out, post)
	}
	return out
}
