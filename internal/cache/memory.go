package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	val     []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryBackend is an in-process Backend. Expired entries are dropped lazily
// on access and during prefix deletes.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get implements Backend.
func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(b.now()) {
		delete(b.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := memoryEntry{val: append([]byte(nil), val...)}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	switch {
	case ttl == KeepTTL:
		prev, ok := b.entries[key]
		if !ok || prev.expired(now) {
			return nil
		}
		e.expires = prev.expires
	case ttl > 0:
		e.expires = now.Add(ttl)
	}
	b.entries[key] = e
	return nil
}

// DeleteByPrefix implements Backend.
func (b *MemoryBackend) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	deleted := 0
	for k, e := range b.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		delete(b.entries, k)
		if !e.expired(now) {
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored entries, including ones not yet reaped.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
