package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dshills/researchagent-go/agent/checkpoint"
	"github.com/dshills/researchagent-go/agent/model"
	"github.com/dshills/researchagent-go/agent/tool"
)

// routingModel answers each workflow prompt by its trailing marker, so it
// behaves like a model that always classifies and decides the same way.
func routingModel(classifyResp, decideResp string) *model.Mock {
	return &model.Mock{Fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Classification:"):
			return classifyResp, nil
		case strings.Contains(prompt, "Final Answer:"):
			return "final answer text", nil
		case strings.Contains(prompt, "Draft response:"):
			return "draft answer text", nil
		case strings.Contains(prompt, "Research Plan:"):
			return "1. search broadly, then narrow", nil
		case strings.Contains(prompt, "Reflect on:"):
			return "needs more specific sources", nil
		case strings.Contains(prompt, "Decision:"):
			return decideResp, nil
		default:
			return "", fmt.Errorf("unexpected prompt: %.60s", prompt)
		}
	}}
}

func newTestEngine(t *testing.T, m model.Model, searchTool tool.Tool) (*Engine, *checkpoint.MemLog[State]) {
	t.Helper()
	if searchTool == nil {
		searchTool = &tool.Mock{ToolName: "search", Responses: []string{"search result"}}
	}
	registry, err := tool.NewRegistry(searchTool)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	log := checkpoint.NewMemLog[State]()
	return NewEngine(m, registry, log, Options{}), log
}

func TestRunDirectQuery(t *testing.T) {
	engine, _ := newTestEngine(t, routingModel("DIRECT", "FINISH"), nil)

	result, err := engine.Run(context.Background(), "run-001", "What is the capital of France?", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Answer != "final answer text" {
		t.Errorf("Answer = %q", result.Answer)
	}
	if result.Degraded {
		t.Error("Degraded = true for a completed run")
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", result.Iterations)
	}

	// Synthesis must be the second executed step: planning, search, and
	// reflection are skipped entirely.
	history, err := engine.History(context.Background(), "run-001")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	steps := make([]string, 0, len(history))
	for _, cp := range history {
		steps = append(steps, cp.Step)
	}
	want := []string{"initial", "classify_query", "synthesize_answer"}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("steps[%d] = %q, want %q", i, steps[i], want[i])
		}
	}
}

func TestRunResearchQuery(t *testing.T) {
	search := &tool.Mock{ToolName: "search", Responses: []string{"go 1.24 release notes"}}
	engine, _ := newTestEngine(t, routingModel("RESEARCH", "FINISH"), search)

	result, err := engine.Run(context.Background(), "run-001", "What changed in Go 1.24?", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Answer != "final answer text" {
		t.Errorf("Answer = %q", result.Answer)
	}
	if result.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", result.Iterations)
	}
	if search.CallCount() != 1 {
		t.Errorf("search calls = %d, want 1", search.CallCount())
	}

	history, err := engine.History(context.Background(), "run-001")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	final := history[len(history)-1].State
	if len(final.SearchResults) != 1 || final.SearchResults[0] != "go 1.24 release notes" {
		t.Errorf("SearchResults = %v", final.SearchResults)
	}
	if final.FinalAnswer == "" {
		t.Error("final checkpoint has empty answer")
	}
}

func TestRunIterationCap(t *testing.T) {
	// The model insists on continuing forever; the cap must still force
	// the loop to finish within three iterations.
	search := &tool.Mock{ToolName: "search", Responses: []string{"result"}}
	engine, _ := newTestEngine(t, routingModel("RESEARCH", "CONTINUE"), search)

	result, err := engine.Run(context.Background(), "run-001", "deep research query", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Degraded {
		t.Error("Degraded = true, cap should terminate normally")
	}
	if result.Iterations != maxSearchIterations {
		t.Errorf("Iterations = %d, want %d", result.Iterations, maxSearchIterations)
	}
	if search.CallCount() != maxSearchIterations {
		t.Errorf("search calls = %d, want %d", search.CallCount(), maxSearchIterations)
	}
}

func TestRunRefinesLaterSearches(t *testing.T) {
	search := &tool.Mock{ToolName: "search", Responses: []string{"result"}}
	engine, _ := newTestEngine(t, routingModel("RESEARCH", "CONTINUE"), search)

	if _, err := engine.Run(context.Background(), "run-001", "base query", 0); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(search.Calls) < 2 {
		t.Fatalf("search calls = %d, want at least 2", len(search.Calls))
	}
	first, _ := search.Calls[0]["query"].(string)
	second, _ := search.Calls[1]["query"].(string)
	if first != "base query" {
		t.Errorf("first search query = %q", first)
	}
	if !strings.HasPrefix(second, "base query ") || second == first {
		t.Errorf("second search query = %q, want refined with reflection", second)
	}
}

func TestRunBudgetExhaustedPartialData(t *testing.T) {
	engine, _ := newTestEngine(t, routingModel("RESEARCH", "CONTINUE"), nil)

	// Two steps cover classify and plan only; the plan makes this the
	// partial-data tier.
	result, err := engine.Run(context.Background(), "run-001", "needs research", 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Degraded {
		t.Error("Degraded = false, want true")
	}
	if result.Answer == "" {
		t.Fatal("empty degraded answer")
	}
	if !strings.Contains(result.Answer, "INCOMPLETE") {
		t.Errorf("answer missing disclosure: %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "2") {
		t.Errorf("answer does not name the budget: %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "draft answer text") {
		t.Errorf("answer missing model draft: %q", result.Answer)
	}
}

func TestRunBudgetExhaustedNoData(t *testing.T) {
	engine, _ := newTestEngine(t, routingModel("RESEARCH", "CONTINUE"), nil)

	// One step covers classification only: no plan, no search results.
	result, err := engine.Run(context.Background(), "run-001", "needs research", 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Degraded {
		t.Error("Degraded = false, want true")
	}
	if !strings.Contains(result.Answer, "(1)") {
		t.Errorf("answer does not name the budget: %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "increase the step budget") {
		t.Errorf("answer missing raise-the-limit instruction: %q", result.Answer)
	}
}

func TestRunDegradedDraftFallsBackToTemplate(t *testing.T) {
	// The draft call itself fails; the local template must still produce
	// a disclosure with the gathered-data summary.
	m := &model.Mock{Fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Classification:"):
			return "RESEARCH", nil
		case strings.Contains(prompt, "Research Plan:"):
			return "the plan", nil
		case strings.Contains(prompt, "Draft response:"):
			return "", errors.New("model unavailable")
		default:
			return "irrelevant", nil
		}
	}}
	engine, _ := newTestEngine(t, m, nil)

	result, err := engine.Run(context.Background(), "run-001", "needs research", 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Degraded {
		t.Error("Degraded = false, want true")
	}
	if !strings.Contains(result.Answer, "INCOMPLETE RESEARCH") {
		t.Errorf("answer missing disclosure: %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "Research plan: created") {
		t.Errorf("answer missing plan status: %q", result.Answer)
	}
	if !strings.Contains(result.Answer, "Search operations completed: 0") {
		t.Errorf("answer missing search count: %q", result.Answer)
	}
}

func TestRunSearchFailureIsTolerated(t *testing.T) {
	search := &tool.Mock{ToolName: "search", Err: errors.New("network down")}
	engine, _ := newTestEngine(t, routingModel("RESEARCH", "CONTINUE"), search)

	result, err := engine.Run(context.Background(), "run-001", "needs research", 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Degraded {
		t.Error("Degraded = true, want normal completion")
	}
	if result.Iterations == 0 {
		t.Error("Iterations = 0, failed searches must still count")
	}

	history, err := engine.History(context.Background(), "run-001")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	final := history[len(history)-1].State
	if len(final.SearchResults) != 0 {
		t.Errorf("SearchResults = %v, want none appended", final.SearchResults)
	}
	found := false
	for _, line := range final.Trace {
		if strings.Contains(line, "search failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("trace missing search failure: %v", final.Trace)
	}
}

func TestRunClassificationErrorFallsBackToDirect(t *testing.T) {
	m := &model.Mock{Fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Classification:"):
			return "", errors.New("rate limited")
		case strings.Contains(prompt, "Final Answer:"):
			return "direct answer", nil
		default:
			return "", fmt.Errorf("unexpected prompt: %.60s", prompt)
		}
	}}
	engine, _ := newTestEngine(t, m, nil)

	result, err := engine.Run(context.Background(), "run-001", "some query", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Answer != "direct answer" {
		t.Errorf("Answer = %q", result.Answer)
	}
	found := false
	for _, line := range result.Trace {
		if strings.Contains(line, "answering directly") {
			found = true
		}
	}
	if !found {
		t.Errorf("trace missing fallback note: %v", result.Trace)
	}
}

func TestRunFatalStepError(t *testing.T) {
	m := &model.Mock{Fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Research Plan:") {
			return "", errors.New("model unavailable")
		}
		return "RESEARCH", nil
	}}
	engine, _ := newTestEngine(t, m, nil)

	_, err := engine.Run(context.Background(), "run-001", "needs research", 0)
	if err == nil {
		t.Fatal("expected error from failing planning step")
	}
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("error type = %T", err)
	}
	if engineErr.Code != "STEP_FAILED" {
		t.Errorf("Code = %q, want STEP_FAILED", engineErr.Code)
	}
}

func TestRunValidation(t *testing.T) {
	engine, _ := newTestEngine(t, routingModel("DIRECT", "FINISH"), nil)

	tests := []struct {
		name     string
		threadID string
		query    string
	}{
		{"empty thread id", "", "query"},
		{"empty query", "run-001", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Run(context.Background(), tt.threadID, tt.query, 0)
			var engineErr *EngineError
			if !errors.As(err, &engineErr) || engineErr.Code != "INVALID_INPUT" {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}

	t.Run("missing model", func(t *testing.T) {
		registry, err := tool.NewRegistry(&tool.Mock{ToolName: "search"})
		if err != nil {
			t.Fatalf("NewRegistry: %v", err)
		}
		broken := NewEngine(nil, registry, checkpoint.NewMemLog[State](), Options{})
		_, err = broken.Run(context.Background(), "run-001", "query", 0)
		var engineErr *EngineError
		if !errors.As(err, &engineErr) || engineErr.Code != "INVALID_CONFIG" {
			t.Errorf("err = %v, want INVALID_CONFIG", err)
		}
	})
}

func TestRunContextCancelled(t *testing.T) {
	engine, _ := newTestEngine(t, routingModel("DIRECT", "FINISH"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Run(ctx, "run-001", "query", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunConcurrentThreads(t *testing.T) {
	search := &tool.Mock{ToolName: "search", Responses: []string{"result"}}
	engine, _ := newTestEngine(t, routingModel("RESEARCH", "FINISH"), search)

	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		go func(g int) {
			_, err := engine.Run(context.Background(), fmt.Sprintf("run-%03d", g), "query", 0)
			errs <- err
		}(g)
	}
	for g := 0; g < 8; g++ {
		if err := <-errs; err != nil {
			t.Errorf("Run: %v", err)
		}
	}

	for g := 0; g < 8; g++ {
		history, err := engine.History(context.Background(), fmt.Sprintf("run-%03d", g))
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		for i, cp := range history {
			if cp.Seq != i {
				t.Errorf("run-%03d history[%d].Seq = %d", g, i, cp.Seq)
			}
		}
		final := history[len(history)-1].State
		if len(final.SearchResults) != 1 {
			t.Errorf("run-%03d SearchResults = %v", g, final.SearchResults)
		}
	}
}
