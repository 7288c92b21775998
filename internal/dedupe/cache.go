// ABOUTME: TTL-bounded tracker for already-processed inbound event ids
// ABOUTME: The bridge consults it before handing events to the orchestrator

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Tracker remembers event ids for a bounded time so the bridge can drop
// redelivered events. Entries expire after the TTL and the oldest entry
// is evicted once the size cap is reached.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // oldest id at the front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// NewTracker creates a tracker and starts its background sweep.
func NewTracker(ttl time.Duration, maxSize int) *Tracker {
	t := &Tracker{
		entries: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go t.sweep()
	return t
}

// Seen atomically reports whether the id was already recorded and records
// it when it was not. The single-call form avoids a check-then-mark race
// between concurrent deliveries of the same event.
func (t *Tracker) Seen(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok && time.Since(e.seenAt) < t.ttl {
		e.seenAt = time.Now()
		t.order.MoveToBack(e.element)
		return true
	}

	t.recordLocked(id)
	return false
}

// Len returns the number of tracked ids, expired or not.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// recordLocked inserts or refreshes an id. Must be called with mu held.
func (t *Tracker) recordLocked(id string) {
	now := time.Now()

	if e, ok := t.entries[id]; ok {
		e.seenAt = now
		t.order.MoveToBack(e.element)
		return
	}

	if len(t.entries) >= t.maxSize {
		t.evictOldestLocked()
	}

	elem := t.order.PushBack(id)
	t.entries[id] = &entry{seenAt: now, element: elem}
}

// evictOldestLocked drops the entry at the front of the order list.
// Must be called with mu held.
func (t *Tracker) evictOldestLocked() {
	front := t.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	t.order.Remove(front)
	delete(t.entries, id)
}

func (t *Tracker) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.dropExpired()
		case <-t.done:
			return
		}
	}
}

func (t *Tracker) dropExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for id, e := range t.entries {
		if now.Sub(e.seenAt) > t.ttl {
			t.order.Remove(e.element)
			delete(t.entries, id)
		}
	}
}

// Close stops the background sweep. Safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		close(t.done)
		t.closed = true
	}
}
