package tool

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_Register(t *testing.T) {
	t.Run("registers tools by name", func(t *testing.T) {
		reg, err := NewRegistry(
			&Mock{ToolName: "search"},
			&Mock{ToolName: "calculator"},
		)
		if err != nil {
			t.Fatalf("NewRegistry: %v", err)
		}

		names := reg.Names()
		if len(names) != 2 || names[0] != "calculator" || names[1] != "search" {
			t.Errorf("Names() = %v", names)
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewRegistry(
			&Mock{ToolName: "search"},
			&Mock{ToolName: "search"},
		)
		if err == nil {
			t.Fatal("expected error for duplicate tool name")
		}
	})

	t.Run("rejects nil tool", func(t *testing.T) {
		reg, _ := NewRegistry()
		if err := reg.Register(nil); err == nil {
			t.Fatal("expected error for nil tool")
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		reg, _ := NewRegistry()
		if err := reg.Register(&Mock{}); err == nil {
			t.Fatal("expected error for empty tool name")
		}
	})
}

func TestRegistry_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches to the named tool", func(t *testing.T) {
		mock := &Mock{ToolName: "search", Responses: []string{"found it"}}
		reg, _ := NewRegistry(mock)

		out, err := reg.Invoke(ctx, "search", map[string]interface{}{"query": "go"})
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if out != "found it" {
			t.Errorf("out = %q, want %q", out, "found it")
		}
		if mock.CallCount() != 1 {
			t.Errorf("CallCount = %d, want 1", mock.CallCount())
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		reg, _ := NewRegistry()
		_, err := reg.Invoke(ctx, "missing", nil)
		if !errors.Is(err, ErrUnknownTool) {
			t.Errorf("err = %v, want ErrUnknownTool", err)
		}
	})

	t.Run("tool failure is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		reg, _ := NewRegistry(&Mock{ToolName: "search", Err: boom})

		_, err := reg.Invoke(ctx, "search", nil)

		var invErr *InvocationError
		if !errors.As(err, &invErr) {
			t.Fatalf("err = %v, want *InvocationError", err)
		}
		if invErr.Tool != "search" {
			t.Errorf("Tool = %q, want %q", invErr.Tool, "search")
		}
		if !errors.Is(err, boom) {
			t.Error("wrapped error should unwrap to the tool failure")
		}
	})
}

func TestMock_ResponseSequence(t *testing.T) {
	ctx := context.Background()
	mock := &Mock{ToolName: "search", Responses: []string{"a", "b"}}

	for _, want := range []string{"a", "b", "b"} {
		got, err := mock.Call(ctx, nil)
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if got != want {
			t.Errorf("Call = %q, want %q", got, want)
		}
	}
}
