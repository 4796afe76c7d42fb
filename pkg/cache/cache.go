package cache

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cacher defines the caching interface.
// store.SQLiteStore satisfies it with a persistent, compressed cache table.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// DefaultSize is the entry limit of NewMemory.
const DefaultSize = 256

// Memory is a process-local LRU Cacher.
type Memory struct {
	lru *lru.Cache[string, []byte]
}

// NewMemory creates an empty in-memory cache holding up to DefaultSize entries.
func NewMemory() *Memory {
	return NewMemoryWithSize(DefaultSize)
}

// NewMemoryWithSize creates an empty in-memory cache holding up to size
// entries. Non-positive sizes fall back to DefaultSize.
func NewMemoryWithSize(size int) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	c, _ := lru.New[string, []byte](size)
	return &Memory{lru: c}
}

func (m *Memory) GetCache(_ context.Context, key string) ([]byte, bool) {
	val, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true
}

func (m *Memory) SetCache(_ context.Context, key string, val []byte) error {
	stored := make([]byte, len(val))
	copy(stored, val)
	m.lru.Add(key, stored)
	return nil
}

// Len returns the number of cached keys.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Tiered fronts a persistent Cacher with a Memory cache. Hits in the
// persistent tier are promoted; writes go to both tiers.
type Tiered struct {
	front *Memory
	back  Cacher
}

// NewTiered creates a Tiered cache over back.
func NewTiered(back Cacher, size int) *Tiered {
	return &Tiered{front: NewMemoryWithSize(size), back: back}
}

func (t *Tiered) GetCache(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := t.front.GetCache(ctx, key); ok {
		return val, true
	}
	val, ok := t.back.GetCache(ctx, key)
	if !ok {
		return nil, false
	}
	_ = t.front.SetCache(ctx, key, val)
	return val, true
}

func (t *Tiered) SetCache(ctx context.Context, key string, val []byte) error {
	_ = t.front.SetCache(ctx, key, val)
	if err := t.back.SetCache(ctx, key, val); err != nil {
		slog.Warn("Cache: persistent write failed", "key", key, "error", err)
		return err
	}
	return nil
}
