package repost

import "sync"

// Broadcaster fans out snapshots of the reposted content-ref set to
// subscribers. Only the engine publishes to it; subscribers always see the
// latest full snapshot, not incremental deltas. Slow consumers never block
// the publisher: a pending snapshot is replaced by a newer one.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan map[string]struct{}
	nextID int
	last   map[string]struct{}
	closed bool
}

// NewBroadcaster creates a broadcaster seeded with the empty set.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan map[string]struct{}),
		last: map[string]struct{}{},
	}
}

// Subscribe returns a channel delivering set snapshots and a cancel func.
// The current snapshot is delivered immediately.
func (b *Broadcaster) Subscribe() (<-chan map[string]struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan map[string]struct{}, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	ch <- copySet(b.last)

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a new snapshot to every subscriber.
func (b *Broadcaster) Publish(set map[string]struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last = copySet(set)

	for _, ch := range b.subs {
		// Drop the stale pending snapshot, keep only the latest.
		select {
		case <-ch:
		default:
		}
		ch <- copySet(b.last)
	}
}

// Current returns the latest published snapshot.
func (b *Broadcaster) Current() map[string]struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copySet(b.last)
}

// Close closes all subscriber channels. Further publishes are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func copySet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}
