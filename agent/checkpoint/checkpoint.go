// Package checkpoint provides an append-only per-thread snapshot log for
// workflow state, with in-memory, SQLite, and MySQL backends.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a thread has no recorded checkpoints.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is an immutable snapshot of workflow state after a completed
// step. Sequence numbers are strictly increasing per thread, starting at 0
// for the pre-execution state. Stored checkpoints are never mutated; the
// engine only appends new ones.
//
// Type parameter S is the state type captured by the snapshot; it must be
// JSON-serializable for the durable backends.
type Checkpoint[S any] struct {
	ThreadID  string    `json:"thread_id"`
	Seq       int       `json:"seq"`
	Step      string    `json:"step"`
	State     S         `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Log persists checkpoints per thread.
//
// Implementations must keep sequence numbers totally ordered per thread
// even under concurrent access from many threads: either a store-wide lock
// or an atomic read-increment-insert per Record call.
type Log[S any] interface {
	// Record appends a new checkpoint for the thread with the next
	// sequence number and returns the stored checkpoint.
	Record(ctx context.Context, threadID, step string, state S) (Checkpoint[S], error)

	// Latest returns the highest-sequence checkpoint for the thread,
	// or ErrNotFound if none exists.
	Latest(ctx context.Context, threadID string) (Checkpoint[S], error)

	// History returns all checkpoints for the thread, oldest first.
	// An empty slice (not an error) is returned for unknown threads.
	History(ctx context.Context, threadID string) ([]Checkpoint[S], error)
}
