package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store defines how sessions are stored and retrieved.
// Get returns nil, nil when the session does not exist or has expired.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Values are stored
// serialized so callers never share a *Session between requests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !m.now().Before(entry.expiresAt) {
		m.evictExpired(id)
		return nil, nil
	}

	var s Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	s.Bind(m)

	return &s, nil
}

// evictExpired deletes id only if the entry is still expired under the
// write lock. A Save between the read and here wins.
func (m *MemoryStore) evictExpired(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[id]; ok && !m.now().Before(entry.expiresAt) {
		delete(m.sessions, id)
	}
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session: missing session id")
	}

	if !m.now().Before(s.ExpiresAt) {
		return m.Delete(ctx, s.ID)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID] = memoryEntry{data: data, expiresAt: s.ExpiresAt}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet evicted
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
