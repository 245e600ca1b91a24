package core

import (
	"context"
	"sort"
	"sync"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedLocks serialises work on named records. Callers acquire every key an
// operation touches in one call; keys are taken in sorted order so two
// operations with overlapping key sets cannot deadlock.
type KeyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewKeyedLocks returns an empty lock table.
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until every key is held or ctx is done. The returned release
// function must be called exactly once.
func (l *KeyedLocks) Acquire(ctx context.Context, keys ...string) (func(), error) {
	ordered := uniqueSorted(keys)
	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		entry := l.ref(key)
		select {
		case entry.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key)
			l.releaseAll(held)
			return nil, ctx.Err()
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(held) })
	}, nil
}

// Len reports the number of keys currently held or awaited.
func (l *KeyedLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *KeyedLocks) ref(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *KeyedLocks) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *KeyedLocks) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		entry := l.entries[keys[i]]
		l.mu.Unlock()
		if entry != nil {
			<-entry.ch
		}
		l.unref(keys[i])
	}
}

func uniqueSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
