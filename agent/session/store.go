package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/researchagent-go/emit"
)

// Store applies quota, expiry, and reclamation policy on top of a Backend.
//
// All compound operations (create with eviction, read-refresh, merge
// updates) run under one mutex, so concurrent callers observe consistent
// per-user counts. The background reap loop starts in New and stops in
// Close; its results are reported through the emitter.
type Store struct {
	mu      sync.Mutex
	backend Backend
	cfg     Config
	emitter emit.Emitter

	lastReap time.Time
	now      func() time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// New wraps backend with the given policy and starts the reap loop. The
// emitter may be nil.
func New(backend Backend, cfg Config, emitter emit.Emitter) *Store {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	s := &Store{
		backend: backend,
		cfg:     cfg.withDefaults(),
		emitter: emitter,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if s.cfg.ReapInterval > 0 {
		s.wg.Add(1)
		go s.reapLoop()
	}
	return s
}

func (s *Store) reapLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			removed, err := s.ReapExpired(context.Background())
			if err != nil {
				s.emitter.Emit(emit.Event{
					Step: "session_reap",
					Msg:  "reap failed",
					Meta: map[string]interface{}{"error": err.Error()},
				})
				continue
			}
			s.emitter.Emit(emit.Event{
				Step: "session_reap",
				Msg:  "reap completed",
				Meta: map[string]interface{}{"removed": removed},
			})
		}
	}
}

// Create inserts a new session and returns its generated id. When userID is
// non-empty and the user is at the per-user cap, the least recently accessed
// sessions are evicted first.
func (s *Store) Create(ctx context.Context, userID string, metadata map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID != "" {
		if err := s.evictOverCap(ctx, userID); err != nil {
			return "", err
		}
	}

	now := s.now()
	sess := Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastAccessed: now,
		Metadata:     cloneMap(metadata),
		Context:      map[string]interface{}{},
	}
	if sess.Metadata == nil {
		sess.Metadata = map[string]interface{}{}
	}
	if err := s.backend.Put(ctx, sess); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return sess.ID, nil
}

// evictOverCap removes the user's oldest live sessions until one more fits
// under the cap. Caller holds s.mu.
func (s *Store) evictOverCap(ctx context.Context, userID string) error {
	sessions, err := s.backend.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list sessions for %q: %w", userID, err)
	}
	cutoff := s.now().Add(-s.cfg.Timeout)
	live := sessions[:0]
	for _, sess := range sessions {
		if sess.LastAccessed.After(cutoff) {
			live = append(live, sess)
		}
	}
	// ListByUser orders most recent first, so eviction walks the tail.
	for len(live) >= s.cfg.MaxPerUser {
		victim := live[len(live)-1]
		if _, err := s.backend.Delete(ctx, victim.ID); err != nil {
			return fmt.Errorf("failed to evict session %q: %w", victim.ID, err)
		}
		live = live[:len(live)-1]
	}
	return nil
}

// Get returns the session, refreshing its last-accessed time. Expired
// sessions are removed and reported as absent.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touch(ctx, id)
}

// touch loads a live session and refreshes last_accessed. Caller holds s.mu.
func (s *Store) touch(ctx context.Context, id string) (Session, error) {
	sess, err := s.backend.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	if now.Sub(sess.LastAccessed) > s.cfg.Timeout {
		if _, err := s.backend.Delete(ctx, id); err != nil {
			return Session{}, fmt.Errorf("failed to remove expired session %q: %w", id, err)
		}
		return Session{}, ErrNotFound
	}
	sess.LastAccessed = now
	if err := s.backend.Put(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("failed to refresh session %q: %w", id, err)
	}
	return sess, nil
}

// UpdateMetadata shallow-merges patch into the session's metadata. It
// reports false when the session is absent or expired.
func (s *Store) UpdateMetadata(ctx context.Context, id string, patch map[string]interface{}) (bool, error) {
	return s.merge(ctx, id, patch, func(sess *Session) map[string]interface{} {
		if sess.Metadata == nil {
			sess.Metadata = map[string]interface{}{}
		}
		return sess.Metadata
	})
}

// UpdateContext shallow-merges patch into the session's context. It reports
// false when the session is absent or expired.
func (s *Store) UpdateContext(ctx context.Context, id string, patch map[string]interface{}) (bool, error) {
	return s.merge(ctx, id, patch, func(sess *Session) map[string]interface{} {
		if sess.Context == nil {
			sess.Context = map[string]interface{}{}
		}
		return sess.Context
	})
}

func (s *Store) merge(ctx context.Context, id string, patch map[string]interface{}, target func(*Session) map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	dst := target(&sess)
	for k, v := range patch {
		dst[k] = v
	}
	if err := s.backend.Put(ctx, sess); err != nil {
		return false, fmt.Errorf("failed to update session %q: %w", id, err)
	}
	return true, nil
}

// Delete removes the session, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Delete(ctx, id)
}

// ListByUser returns the user's live sessions, most recently accessed first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.backend.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-s.cfg.Timeout)
	live := sessions[:0]
	for _, sess := range sessions {
		if sess.LastAccessed.After(cutoff) {
			live = append(live, sess)
		}
	}
	return live, nil
}

// ReapExpired removes every expired session and returns the count removed.
// It is safe to call concurrently and repeatedly.
func (s *Store) ReapExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.Timeout)
	removed, err := s.backend.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap expired sessions: %w", err)
	}
	s.lastReap = s.now()
	return removed, nil
}

// Stats summarizes the store.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, users, err := s.backend.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count sessions: %w", err)
	}
	return Stats{
		ActiveCount:     sessions,
		UniqueUserCount: users,
		BackendKind:     s.backend.Kind(),
		Timeout:         s.cfg.Timeout,
		LastReap:        s.lastReap,
	}, nil
}

// Close stops the reap loop and closes the backend.
func (s *Store) Close() error {
	close(s.done)
	s.wg.Wait()
	return s.backend.Close()
}
