// Package model provides the language model port used by the workflow engine,
// along with provider adapters in subpackages.
package model

import (
	"context"
	"fmt"
)

// Model is the language model contract the engine calls into.
//
// Implementations wrap a concrete provider (OpenAI, Anthropic, Google) or a
// test double. They should:
//   - Respect context cancellation and timeouts
//   - Return the provider's text output as a plain string
//   - Translate provider failures into an *InvocationError
//
// No streaming or structured output is required.
type Model interface {
	// Invoke sends a single prompt and returns the model's text response.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// InvocationError wraps a provider failure with the provider's name.
//
// Callers can unwrap to reach the underlying SDK error:
//
//	var invErr *model.InvocationError
//	if errors.As(err, &invErr) {
//	    log.Printf("%s call failed: %v", invErr.Provider, invErr.Err)
//	}
type InvocationError struct {
	Provider string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s invocation failed: %v", e.Provider, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
