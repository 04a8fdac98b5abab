package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache implementation. Safe for concurrent use.
// Expired entries are dropped lazily on read and by a periodic janitor.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowF    func() time.Time
	done    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemory returns a new in-memory cache with a janitor sweeping every minute.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		nowF:    time.Now,
		done:    make(chan struct{}),
	}
	go m.janitor(time.Minute)
	return m
}

func memoryKey(namespace, key string) string { return namespace + ":" + key }

// Get returns the value for namespace+key, with ok false on miss or expiry.
func (m *Memory) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	k := memoryKey(namespace, key)
	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(m.nowF()) {
		m.mu.Lock()
		delete(m.entries, k)
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under namespace+key for ttl.
func (m *Memory) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = m.nowF().Add(ttl)
	}
	m.mu.Lock()
	m.entries[memoryKey(namespace, key)] = memoryEntry{value: value, expiresAt: exp}
	m.mu.Unlock()
	return nil
}

// Delete removes namespace+key. No error if absent.
func (m *Memory) Delete(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	delete(m.entries, memoryKey(namespace, key))
	m.mu.Unlock()
	return nil
}

// Close stops the janitor goroutine.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.nowF()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(m.entries, k)
		}
	}
}
