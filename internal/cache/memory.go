package cache

import (
	"context"
	"sync"
	"time"
)

// memorySweepInterval bounds how often Set scans for expired entries.
const memorySweepInterval = time.Minute

type memoryEntry struct {
	payload []byte
	tags    []string
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryBackend is the in-process Backend used when no redis is configured.
// Expired entries are reaped on Get and by a sweep that Set runs at most once
// per memorySweepInterval.
type MemoryBackend struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	tags      map[string]map[string]struct{}
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(m.now()) {
		m.removeLocked(key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, payload []byte, tags []string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweepLocked(now)
		m.nextSweep = now.Add(memorySweepInterval)
	}

	m.removeLocked(key)
	entry := memoryEntry{
		payload: append([]byte(nil), payload...),
		tags:    append([]string(nil), tags...),
	}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}
	m.entries[key] = entry
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (m *MemoryBackend) InvalidateTag(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.tags[tag] {
		m.removeLocked(key)
	}
	delete(m.tags, tag)
	return nil
}

func (m *MemoryBackend) sweepLocked(now time.Time) {
	for key, entry := range m.entries {
		if entry.expired(now) {
			m.removeLocked(key)
		}
	}
}

// removeLocked drops key and its tag memberships. Empty tag sets go too.
func (m *MemoryBackend) removeLocked(key string) {
	entry, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	for _, tag := range entry.tags {
		keys := m.tags[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.tags, tag)
		}
	}
}
