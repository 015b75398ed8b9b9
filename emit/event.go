package emit

// Event represents an observability event produced during a workflow run
// or by the session store's background maintenance.
//
// Events describe points in time:
//   - a workflow step completing
//   - a checkpoint being written
//   - a run degrading after budget exhaustion
//   - a session reap pass finishing or failing
type Event struct {
	// ThreadID identifies the workflow run that produced this event.
	// Empty for store-level events such as session reaping.
	ThreadID string

	// Seq is the checkpoint sequence number associated with the event.
	// Zero for events emitted before any step has committed.
	Seq int

	// Step names the workflow step that produced the event
	// (e.g. "classify_query", "execute_search"). Empty for
	// run-level and store-level events.
	Step string

	// Msg is a short human-readable description of the event.
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "error": error details
	//   - "iterations": search iteration count
	//   - "budget": configured step budget
	//   - "removed": number of sessions removed by a reap pass
	Meta map[string]interface{}
}
