package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process TTL cache with a size cap. When full, the entry
// closest to expiry is evicted.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time

	hits, misses, sets int64
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemory creates a memory cache holding at most maxEntries items
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a copy of the stored value if present and not expired
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expires) {
		if ok {
			delete(m.entries, key)
		}
		m.misses++
		return nil, false, nil
	}
	m.hits++
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value for ttl
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evict()
	}
	m.entries[key] = memoryEntry{
		value:   append([]byte(nil), value...),
		expires: m.now().Add(ttl),
	}
	m.sets++
	return nil
}

// evict must be called with mu held
func (m *Memory) evict() {
	now := m.now()
	var victim string
	var soonest time.Time
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			continue
		}
		if victim == "" || e.expires.Before(soonest) {
			victim, soonest = k, e.expires
		}
	}
	if len(m.entries) >= m.maxEntries && victim != "" {
		delete(m.entries, victim)
	}
}

// Delete removes key
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear removes every entry
func (m *Memory) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.entries = make(map[string]memoryEntry)
	return n, nil
}

// Stats returns cache performance statistics
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Backend: "memory",
		Hits:    m.hits,
		Misses:  m.misses,
		Sets:    m.sets,
		Entries: int64(len(m.entries)),
		HitRate: hitRate(m.hits, m.misses),
	}
}
