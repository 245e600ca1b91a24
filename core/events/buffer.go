package events

import "sync"

// Buffer collects events emitted during a single operation so they can be
// released only after the operation commits.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Drain returns and clears the buffered events.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// FlushTo forwards buffered events to dst in emission order.
func (b *Buffer) FlushTo(dst Emitter) []Event {
	drained := b.Drain()
	if dst == nil {
		return drained
	}
	for _, evt := range drained {
		dst.Emit(evt)
	}
	return drained
}

// Multi fans events out to several emitters.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}
