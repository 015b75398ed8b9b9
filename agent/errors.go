// Package agent implements a bounded multi-step research workflow: a fixed
// state machine (classify, plan, search, reflect, decide, synthesize) driven
// under a hard step budget, with graceful degradation to a best-effort
// answer when the budget runs out.
package agent

import "errors"

// ErrUnknownAgentType indicates a request named an agent type the service
// does not provide. This is a caller error and fails the request.
var ErrUnknownAgentType = errors.New("unknown agent type")

// EngineError represents a fatal error from workflow execution.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
