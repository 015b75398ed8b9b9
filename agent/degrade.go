package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/researchagent-go/emit"
)

// degrade builds a best-effort answer after budget exhaustion. It never
// returns an error: every failure inside this path falls through to the
// next tier, ending at a locally built template that cannot fail.
//
// Tiers:
//  1. no data gathered yet: a short message naming the budget and asking
//     the caller to raise it or narrow the query
//  2. partial data: one extra model call (exempt from the budget, it is
//     the exit path) drafting an answer from plan/results/reflection,
//     prefixed with an incompleteness disclosure
//  3. model call failed: a template summarizing what was and was not
//     gathered
func (e *Engine) degrade(ctx context.Context, threadID string, state State, budget int) Result {
	// Prefer the last committed checkpoint; fall back to the in-flight
	// state if none was recorded.
	if cp, err := e.log.Latest(ctx, threadID); err == nil {
		state = cp.State
	}

	e.emitter.Emit(emit.Event{
		ThreadID: threadID,
		Step:     "degrade",
		Msg:      "step budget exhausted",
		Meta: map[string]interface{}{
			"budget":     budget,
			"iterations": state.Iterations,
		},
	})

	var answer string
	if state.Plan == "" && len(state.SearchResults) == 0 {
		answer = noDataAnswer(state.Query, budget)
	} else {
		answer = e.draftAnswer(ctx, state, budget)
	}

	trace := append(append([]string(nil), state.Trace...), "budget exhausted, degraded answer generated")
	return Result{
		Answer:     answer,
		Trace:      trace,
		Iterations: state.Iterations,
		Degraded:   true,
	}
}

func noDataAnswer(query string, budget int) string {
	return fmt.Sprintf(`DRAFT RESPONSE - INCOMPLETE DATA

I reached the maximum allowed number of steps (%d) before gathering sufficient information to answer: %q

Due to the step limit, no research could be conducted. Please increase the step budget or reformulate the query to be more specific.`, budget, query)
}

// disclosure is the mandatory prefix for every partial-data answer.
func disclosure(iterations, budget int) string {
	return fmt.Sprintf(`DRAFT RESPONSE - INCOMPLETE RESEARCH

This is a preliminary answer based on limited research data: the step budget of %d was reached after %d search iteration(s). The following should be treated as a draft outline rather than a complete answer.`, budget, iterations)
}

// draftAnswer asks the model for a best-effort draft from the partial
// state. On failure it falls back to templateAnswer.
func (e *Engine) draftAnswer(ctx context.Context, state State, budget int) string {
	plan := state.Plan
	if plan == "" {
		plan = "No research plan available"
	}
	results := strings.Join(state.SearchResults, "\n")
	if results == "" {
		results = "No search results available"
	}
	reflection := state.Reflection
	if reflection == "" {
		reflection = "No reflection available"
	}

	prompt := fmt.Sprintf(`User query: %s

Available research data (INCOMPLETE, the step budget of %d was exhausted):

Research plan:
%s

Search results from %d iteration(s):
%s

Last reflection:
%s

TASK: Create a DRAFT answer to the user's query based on the available incomplete data.

Provide:
1. A draft answer based on available information
2. Clear indication of what information is missing or incomplete
3. Suggestions for getting a more complete answer

IMPORTANT: Answer in the same language as the original query.

Draft response:`, state.Query, budget, plan, len(state.SearchResults), results, reflection)

	response, err := e.model.Invoke(ctx, prompt)
	if err != nil {
		return templateAnswer(state, budget)
	}
	return disclosure(state.Iterations, budget) + "\n\n" + response
}

// templateAnswer is the last tier: built entirely from local state, it
// cannot fail.
func templateAnswer(state State, budget int) string {
	var b strings.Builder
	b.WriteString(disclosure(state.Iterations, budget))
	b.WriteString("\n\nQuery: ")
	b.WriteString(state.Query)

	if len(state.SearchResults) > 0 {
		snippet := state.SearchResults[0]
		if len(snippet) > 500 {
			snippet = snippet[:500] + "..."
		}
		b.WriteString("\n\nBased on preliminary search results:\n")
		b.WriteString(snippet)
	} else {
		b.WriteString("\n\nInsufficient data was gathered to provide even a preliminary answer.")
	}

	planStatus := "not created"
	if state.Plan != "" {
		planStatus = "created"
	}
	analysisDepth := "minimal"
	if state.Reflection != "" {
		analysisDepth = "partial"
	}
	fmt.Fprintf(&b, `

Research status:
- Research plan: %s
- Search operations completed: %d
- Analysis depth: %s

To get a complete answer, increase the step budget (for example %d) or try a more specific query.`,
		planStatus, len(state.SearchResults), analysisDepth, budget*2)

	return b.String()
}
