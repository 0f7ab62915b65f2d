package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

type memoryEntry struct {
	data     []byte
	expireAt time.Time
}

// MemoryBackend keeps serialized carts in process. Used for local runs and tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Get(_ context.Context, userID int64) (*domain.Cart, error) {
	m.mu.RLock()
	entry, ok := m.entries[cacheKey(userID)]
	m.mu.RUnlock()

	if !ok || (!entry.expireAt.IsZero() && m.now().After(entry.expireAt)) {
		return nil, ErrCacheMiss
	}

	var cart domain.Cart
	if err := json.Unmarshal(entry.data, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (m *MemoryBackend) Set(_ context.Context, userID int64, cart *domain.Cart, ttl time.Duration) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expireAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(userID)] = entry
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, cacheKey(userID))
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}
