package stream

import (
	"sync"

	"github.com/CILXRY/f-sleepy/internal/metrics"
	"github.com/CILXRY/f-sleepy/internal/models"
)

// Subscription is one subscriber's mailbox. It holds at most one pending
// snapshot; a newer one replaces it.
type Subscription struct {
	id uint64
	ch chan models.Snapshot
}

// C delivers snapshots. It is closed on Unsubscribe or Hub.Close.
func (s *Subscription) C() <-chan models.Snapshot { return s.ch }

// Hub fans change snapshots out to subscribers. Publish never waits for a
// subscriber; slow subscribers only see the latest snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	nextID uint64
	last   uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new mailbox. Subscribing to a closed hub returns an
// already closed subscription.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, ch: make(chan models.Snapshot, 1)}
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it more than once
// is fine.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Publish hands snap to every subscriber. Snapshots older than one already
// published are ignored, so subscribers see generations in order.
func (h *Hub) Publish(snap models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || snap.Generation <= h.last {
		return
	}
	h.last = snap.Generation
	for sub := range h.subs {
		deliver(sub, snap)
	}
}

func deliver(sub *Subscription, snap models.Snapshot) {
	select {
	case sub.ch <- snap:
		return
	default:
	}
	// Mailbox full: drop the stale snapshot. Publishers are serialized by
	// the hub lock, so the slot is free afterwards.
	select {
	case <-sub.ch:
		metrics.StreamCoalescedTotal.Inc()
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close unsubscribes everyone. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}
