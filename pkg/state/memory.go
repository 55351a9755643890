package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory state store.
// It's the default store and suitable for single-server deployments.
// For multi-server deployments, use RedisStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*storedEntry
	closed  bool
	done    chan struct{}
}

type storedEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStoreOption configures MemoryStore behavior.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	cleanupInterval time.Duration
}

// WithCleanupInterval sets how often expired entries are cleaned up.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		c.cleanupInterval = d
	}
}

// NewMemoryStore creates a new in-memory state store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{
		cleanupInterval: 1 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := &MemoryStore{
		entries: make(map[string]*storedEntry),
		done:    make(chan struct{}),
	}

	go store.cleanupLoop(cfg.cleanupInterval)
	return store
}

// Save stores a payload with an expiration time.
func (m *MemoryStore) Save(ctx context.Context, token string, data []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	m.entries[token] = &storedEntry{
		data:      dataCopy,
		expiresAt: expiresAt,
	}
	return nil
}

// Load retrieves a payload if it exists and hasn't expired.
func (m *MemoryStore) Load(ctx context.Context, token string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	e, ok := m.entries[token]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	dataCopy := make([]byte, len(e.data))
	copy(dataCopy, e.data)
	return dataCopy, nil
}

// Delete removes a payload from the store.
func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.entries, token)
	return nil
}

// Touch updates the expiration time of a payload.
func (m *MemoryStore) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if e, ok := m.entries[token]; ok {
		e.expiresAt = expiresAt
	}
	return nil
}

// Close shuts down the store and releases resources.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)
	m.entries = nil
	return nil
}

// Count returns the number of entries in the store, expired or not.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	now := time.Now()
	for token, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, token)
		}
	}
}
