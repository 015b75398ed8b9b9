package tool

import (
	"context"
	"sync"
)

// Mock is a test implementation of Tool.
//
// Example:
//
//	mock := &tool.Mock{
//	    ToolName:  "search",
//	    Responses: []string{"first result", "second result"},
//	}
//	out, _ := mock.Call(ctx, map[string]interface{}{"query": "go"})
//	// "first result", then "second result"; the last response repeats
//
// Error injection:
//
//	mock := &tool.Mock{ToolName: "search", Err: errors.New("timeout")}
//
// Mock is safe for concurrent use.
type Mock struct {
	// ToolName is the identifier returned by Name().
	ToolName string

	// Responses contains the sequence of outputs returned in order.
	// When exhausted, the last response repeats.
	Responses []string

	// Err, if set, is returned by every Call.
	Err error

	// Calls records the input of every Call invocation.
	Calls []map[string]interface{}

	mu        sync.Mutex
	callIndex int
}

// Name implements Tool.
func (m *Mock) Name() string {
	return m.ToolName
}

// Call implements Tool. The call is always recorded in Calls, regardless
// of outcome.
func (m *Mock) Call(ctx context.Context, input map[string]interface{}) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, input)

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	return m.Responses[idx], nil
}

// CallCount returns the number of recorded calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
