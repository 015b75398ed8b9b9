package checkpoint

import (
	"context"
	"sync"
	"time"
)

// MemLog is an in-memory implementation of Log[S].
//
// Designed for:
//   - Testing and development
//   - Single-process deployments where checkpoint durability isn't required
//
// Data is lost when the process terminates. MemLog is safe for concurrent
// use; the store mutex also serializes sequence assignment, which keeps
// sequence numbers strictly increasing per thread.
type MemLog[S any] struct {
	mu      sync.RWMutex
	entries map[string][]Checkpoint[S] // threadID -> checkpoints, append order
}

// NewMemLog creates an empty in-memory checkpoint log.
func NewMemLog[S any]() *MemLog[S] {
	return &MemLog[S]{
		entries: make(map[string][]Checkpoint[S]),
	}
}

// Record appends a checkpoint with the next sequence number for the thread.
func (m *MemLog[S]) Record(_ context.Context, threadID, step string, state S) (Checkpoint[S], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := Checkpoint[S]{
		ThreadID:  threadID,
		Seq:       len(m.entries[threadID]),
		Step:      step,
		State:     state,
		CreatedAt: time.Now(),
	}
	m.entries[threadID] = append(m.entries[threadID], cp)
	return cp, nil
}

// Latest returns the most recent checkpoint for the thread.
func (m *MemLog[S]) Latest(_ context.Context, threadID string) (Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.entries[threadID]
	if len(entries) == 0 {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}
	return entries[len(entries)-1], nil
}

// History returns all checkpoints for the thread, oldest first.
func (m *MemLog[S]) History(_ context.Context, threadID string) ([]Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.entries[threadID]
	out := make([]Checkpoint[S], len(entries))
	copy(out, entries)
	return out, nil
}
