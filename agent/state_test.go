package agent

import (
	"testing"
)

func TestReduce(t *testing.T) {
	t.Run("merges fields without touching the previous state", func(t *testing.T) {
		prev := State{
			Query:         "q",
			SearchResults: []string{"first"},
			Trace:         []string{"step one"},
			Iterations:    1,
		}
		result := "second"
		next := reduce(prev, Delta{
			SearchResult:   &result,
			SearchExecuted: true,
			Trace:          []string{"step two"},
		})

		if len(prev.SearchResults) != 1 || len(prev.Trace) != 1 || prev.Iterations != 1 {
			t.Errorf("previous state mutated: %+v", prev)
		}
		if len(next.SearchResults) != 2 || next.SearchResults[1] != "second" {
			t.Errorf("SearchResults = %v", next.SearchResults)
		}
		if next.Iterations != 2 {
			t.Errorf("Iterations = %d, want 2", next.Iterations)
		}
		if len(next.Trace) != 2 || next.Trace[1] != "step two" {
			t.Errorf("Trace = %v", next.Trace)
		}
	})

	t.Run("search failure increments without appending", func(t *testing.T) {
		next := reduce(State{}, Delta{SearchExecuted: true})
		if next.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1", next.Iterations)
		}
		if len(next.SearchResults) != 0 {
			t.Errorf("SearchResults = %v, want empty", next.SearchResults)
		}
	})

	t.Run("plan resets iterations", func(t *testing.T) {
		next := reduce(State{Iterations: 2}, Delta{Plan: "p", ResetIterations: true})
		if next.Iterations != 0 {
			t.Errorf("Iterations = %d, want 0", next.Iterations)
		}
		if next.Plan != "p" {
			t.Errorf("Plan = %q", next.Plan)
		}
	})

	t.Run("empty fields do not clear previous values", func(t *testing.T) {
		prev := State{Plan: "p", Reflection: "r", NextAction: ActionResearch, FinalAnswer: "a"}
		next := reduce(prev, Delta{})
		if next.Plan != "p" || next.Reflection != "r" || next.NextAction != ActionResearch || next.FinalAnswer != "a" {
			t.Errorf("fields cleared: %+v", next)
		}
	})
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current Step
		action  Action
		want    Step
	}{
		{"classify research", StepClassify, ActionResearch, StepPlan},
		{"classify direct", StepClassify, ActionDirect, StepSynthesize},
		{"classify unset defaults direct", StepClassify, ActionUnset, StepSynthesize},
		{"plan to search", StepPlan, ActionUnset, StepSearch},
		{"search to reflect", StepSearch, ActionUnset, StepReflect},
		{"reflect to decide", StepReflect, ActionUnset, StepDecide},
		{"decide continue loops to search", StepDecide, ActionContinue, StepSearch},
		{"decide finish", StepDecide, ActionFinish, StepSynthesize},
		{"decide unset defaults finish", StepDecide, ActionUnset, StepSynthesize},
		{"synthesize terminates", StepSynthesize, ActionFinish, StepTerminal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transition(tt.current, tt.action)
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if got != tt.want {
				t.Errorf("transition(%v, %q) = %v, want %v", tt.current, tt.action, got, tt.want)
			}
		})
	}

	t.Run("terminal has no successor", func(t *testing.T) {
		if _, err := transition(StepTerminal, ActionUnset); err == nil {
			t.Error("expected error from terminal transition")
		}
	})
}
