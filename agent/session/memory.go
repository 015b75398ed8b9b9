package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemBackend is an in-process Backend. Sessions are lost on restart.
//
// Suitable for development, testing, and single-process deployments that
// do not need durable sessions.
type MemBackend struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemBackend creates an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{sessions: make(map[string]Session)}
}

// Put inserts or replaces the session.
func (m *MemBackend) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.clone()
	return nil
}

// Get returns the session or ErrNotFound.
func (m *MemBackend) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s.clone(), nil
}

// Delete removes the session, reporting whether it existed.
func (m *MemBackend) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok, nil
}

// ListByUser returns the user's sessions, most recently accessed first.
func (m *MemBackend) ListByUser(_ context.Context, userID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	return out, nil
}

// DeleteExpiredBefore removes sessions last accessed before cutoff.
func (m *MemBackend) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns stored session and distinct user counts.
func (m *MemBackend) Count(_ context.Context) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[string]struct{})
	for _, s := range m.sessions {
		if s.UserID != "" {
			users[s.UserID] = struct{}{}
		}
	}
	return len(m.sessions), len(users), nil
}

// Kind identifies the backend.
func (m *MemBackend) Kind() string { return "memory" }

// Close is a no-op for the in-memory backend.
func (m *MemBackend) Close() error { return nil }
