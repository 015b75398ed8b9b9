package model

import (
	"context"
	"sync"
)

// Mock is a test implementation of Model.
//
// Use it to verify workflow behavior without real API calls:
//
//	m := &model.Mock{Responses: []string{"RESEARCH", "plan text"}}
//	out, _ := m.Invoke(ctx, "classify this")
//	// "RESEARCH" first, then "plan text"; the last response repeats
//
// Errors can be injected globally with Err, or per call with Fn:
//
//	m := &model.Mock{Fn: func(prompt string) (string, error) {
//	    if strings.Contains(prompt, "decide") {
//	        return "", errors.New("boom")
//	    }
//	    return "ok", nil
//	}}
//
// Mock is safe for concurrent use.
type Mock struct {
	// Responses contains the sequence of responses returned in order.
	// When exhausted, the last response repeats.
	Responses []string

	// Err, if set, is returned by every Invoke call.
	Err error

	// Fn, if set, computes the response per call and takes precedence
	// over Responses and Err.
	Fn func(prompt string) (string, error)

	// Calls records every prompt passed to Invoke.
	Calls []string

	mu        sync.Mutex
	callIndex int
}

// Invoke implements Model. The call is always recorded in Calls,
// regardless of outcome.
func (m *Mock) Invoke(ctx context.Context, prompt string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, prompt)

	if m.Fn != nil {
		return m.Fn(prompt)
	}
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

// CallCount returns the number of Invoke calls recorded so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
