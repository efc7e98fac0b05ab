package session

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/tiledgallery/pkg/errors"
)

// MemoryStore keeps sessions in process memory. Loaders hold live state
// that cannot be serialized, so this is the only backend.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	max      int
	now      func() time.Time
}

// NewMemoryStore creates a store holding at most max sessions. max ≤ 0
// uses DefaultMaxSessions.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		max:      max,
		now:      time.Now,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	now := m.now()
	if s.IsExpired(now) {
		delete(m.sessions, id)
		s.Close()
		return nil, notFound(id)
	}
	s.touch(now)
	return s, nil
}

// Set implements Store. A full store first drops expired sessions and
// fails with LIMIT_EXCEEDED if it is still full.
func (m *MemoryStore) Set(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "session must have an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; !exists && len(m.sessions) >= m.max {
		m.cleanupLocked()
		if len(m.sessions) >= m.max {
			return errors.New(errors.ErrCodeLimitExceeded, "too many sessions (max %d)", m.max)
		}
	}
	m.sessions[s.ID] = s
	return nil
}

// Delete implements Store. Deleting an unknown id is not an error.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return nil
}

// Cleanup implements Store.
func (m *MemoryStore) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupLocked(), nil
}

func (m *MemoryStore) cleanupLocked() int {
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, id)
			s.Close()
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration, onCleanup func(n int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, _ := m.Cleanup(ctx)
			if n > 0 && onCleanup != nil {
				onCleanup(n)
			}
		}
	}
}

// Close closes every session.
func (m *MemoryStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

var _ Store = (*MemoryStore)(nil)
