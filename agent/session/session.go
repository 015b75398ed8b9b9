// Package session provides conversation session management with pluggable
// storage backends.
//
// A Session outlives any single workflow run: it carries caller-supplied
// metadata and engine-maintained context across requests that share a
// session id. The Store enforces per-user quotas and inactivity timeouts
// over whichever Backend it was constructed with.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Session is one persisted conversation.
//
// Metadata holds caller-supplied annotations (agent type, query counters).
// Context is working memory maintained by the service layer (last answer,
// last error). Both are shallow-merged on update.
type Session struct {
	ID           string                 `json:"session_id"`
	UserID       string                 `json:"user_id,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	LastAccessed time.Time              `json:"last_accessed"`
	Metadata     map[string]interface{} `json:"metadata"`
	Context      map[string]interface{} `json:"context"`
}

// clone returns a deep copy so callers cannot mutate stored maps.
func (s Session) clone() Session {
	out := s
	out.Metadata = cloneMap(s.Metadata)
	out.Context = cloneMap(s.Context)
	return out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Backend is the storage contract shared by the volatile and durable
// implementations. Backends store records verbatim; expiry and quota policy
// live in the Store.
type Backend interface {
	// Put inserts or replaces the session.
	Put(ctx context.Context, s Session) error

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (Session, error)

	// Delete removes the session, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// ListByUser returns the user's sessions ordered most recently
	// accessed first.
	ListByUser(ctx context.Context, userID string) ([]Session, error)

	// DeleteExpiredBefore removes every session whose last access is
	// before cutoff and returns the count removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Count returns the number of stored sessions and distinct user ids.
	Count(ctx context.Context) (sessions, users int, err error)

	// Kind identifies the backend ("memory", "sqlite").
	Kind() string

	// Close releases backend resources.
	Close() error
}

// Config controls session lifetime policy. Zero values select defaults.
type Config struct {
	// Timeout is the inactivity window after which a session expires.
	// Defaults to 24 hours.
	Timeout time.Duration

	// ReapInterval is how often the background reclamation pass runs.
	// Defaults to 1 hour. Negative disables the background loop.
	ReapInterval time.Duration

	// MaxPerUser caps live sessions per user id. When a create would
	// exceed the cap, the least recently accessed sessions are evicted.
	// Defaults to 10. Anonymous sessions are not capped.
	MaxPerUser int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 24 * time.Hour
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = time.Hour
	}
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = 10
	}
	return c
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	ActiveCount     int           `json:"active_count"`
	UniqueUserCount int           `json:"unique_user_count"`
	BackendKind     string        `json:"backend_kind"`
	Timeout         time.Duration `json:"timeout"`
	LastReap        time.Time     `json:"last_reap_time"`
}
