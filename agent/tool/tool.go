// Package tool provides the tool port the workflow engine calls into,
// a registry for addressing tools by name, and the built-in tool set
// (search, wikipedia, calculator, current time).
package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTool is returned by Registry.Invoke when no tool with the
// requested name is registered.
var ErrUnknownTool = errors.New("unknown tool")

// Tool defines the interface for executable tools a workflow can invoke.
//
// Implementations should:
//   - Check ctx.Err() before expensive operations
//   - Validate required input parameters
//   - Return descriptive errors for invalid inputs
//   - Return the result as a plain string suitable for inclusion in a prompt
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names are lowercase with underscores, e.g. "search", "calculator".
	Name() string

	// Call executes the tool with the provided input.
	// Input may be nil for parameterless tools.
	Call(ctx context.Context, input map[string]interface{}) (string, error)
}

// InvocationError wraps a tool failure with the tool's name. The engine
// treats these as non-fatal during search execution.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Registry holds the configured tool set and dispatches invocations by name.
//
// A Registry is safe for concurrent use. Tools are registered once at
// construction time; the engine addresses them generically by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry containing the given tools.
// Duplicate names are rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. It returns an error if the tool is nil, unnamed,
// or a tool with the same name already exists.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return errors.New("tool cannot be nil")
	}
	name := t.Name()
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("duplicate tool name: %s", name)
	}
	r.tools[name] = t
	return nil
}

// Invoke dispatches to the named tool. Returns ErrUnknownTool (wrapped with
// the requested name) if no such tool is registered; tool failures are
// wrapped in *InvocationError.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]interface{}) (string, error) {
	r.mu.RLock()
	t, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	out, err := t.Call(ctx, input)
	if err != nil {
		return "", &InvocationError{Tool: name, Err: err}
	}
	return out, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
