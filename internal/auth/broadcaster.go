package auth

import (
	"slices"
	"sync"
)

// Broadcaster fans auth events out to subscribers. Broadcasts are serialized
// so every subscriber observes the same order.
type Broadcaster struct {
	mu     sync.Mutex
	emitMu sync.Mutex
	nextID int
	subs   map[int]func(Event)
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(Event))}
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe registers fn; after Close it returns an inert subscription
func (b *Broadcaster) Subscribe(fn func(Event)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return &subscription{cancel: func() {}}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return &subscription{cancel: func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}}
}

// Broadcast delivers ev to the subscribers registered when it starts, in
// registration order
func (b *Broadcaster) Broadcast(ev Event) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = b.subs[id]
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len reports the number of live subscribers
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops all subscribers and ignores later broadcasts
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	clear(b.subs)
}
