package cache

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in process memory. Used when persistence is
// not wanted and in tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[Partition]map[string]Entry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[Partition]map[string]Entry{}}
}

func (b *MemoryBackend) Put(_ context.Context, e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.entries[e.Partition] == nil {
		b.entries[e.Partition] = map[string]Entry{}
	}
	e.Payload = append([]byte(nil), e.Payload...)
	b.entries[e.Partition][e.Key] = e
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, p Partition, key string) (Entry, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[p][key]
	return e, ok, nil
}

func (b *MemoryBackend) Clear(_ context.Context, parts ...Partition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range parts {
		delete(b.entries, p)
	}
	return nil
}

func (b *MemoryBackend) Close() error { return nil }
