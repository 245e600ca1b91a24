package events

import (
	"sync"

	"launchpad/core/types"
)

// Broadcaster delivers committed events to live subscribers. Slow subscribers
// drop events instead of blocking the ledger.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]chan *types.Event
	nextID uint64
	buffer int
}

// NewBroadcaster returns a broadcaster whose subscriber channels hold buffer
// events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{subs: make(map[uint64]chan *types.Event), buffer: buffer}
}

// Emit implements Emitter.
func (b *Broadcaster) Emit(evt Event) {
	payload := Canonical(evt)
	if payload == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- payload.Clone():
		default:
		}
	}
}

// Subscribe registers a subscriber and returns its channel with a cancel
// function that must be called to release it.
func (b *Broadcaster) Subscribe() (<-chan *types.Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan *types.Event, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
