// Package emit provides observability events for workflow execution and
// session store maintenance.
package emit

// Emitter receives observability events.
//
// Implementations must be safe for concurrent use: the engine emits from
// many workflow runs at once, and the session store's reap loop emits from
// its own goroutine.
//
// Emit must not panic and must not block workflow execution. Backend
// failures should be absorbed internally, never surfaced to the caller.
type Emitter interface {
	Emit(event Event)
}
