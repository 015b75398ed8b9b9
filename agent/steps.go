package agent

import (
	"context"
	"fmt"
	"strings"
)

// maxSearchIterations caps search/reflect/decide cycles independently of
// the model's raw output, guaranteeing the loop terminates.
const maxSearchIterations = 3

// executeStep dispatches to the step implementation. Steps return a Delta
// and never mutate the state they are given.
func (e *Engine) executeStep(ctx context.Context, step Step, state State) (Delta, error) {
	switch step {
	case StepClassify:
		return e.classify(ctx, state)
	case StepPlan:
		return e.plan(ctx, state)
	case StepSearch:
		return e.search(ctx, state)
	case StepReflect:
		return e.reflect(ctx, state)
	case StepDecide:
		return e.decide(ctx, state)
	case StepSynthesize:
		return e.synthesize(ctx, state)
	default:
		return Delta{}, &EngineError{
			Message: "no implementation for step: " + step.String(),
			Code:    "UNKNOWN_STEP",
		}
	}
}

// classify decides whether the query needs research or a direct answer.
// It is one-shot: a model failure falls back to direct, never fails the run.
func (e *Engine) classify(ctx context.Context, state State) (Delta, error) {
	prompt := fmt.Sprintf(`Analyze this query and determine if it requires internet research or can be answered directly:

Query: %s

Respond with either:
- "RESEARCH" if it requires current information, facts, or external data
- "DIRECT" if it can be answered with general knowledge

Classification:`, state.Query)

	response, err := e.model.Invoke(ctx, prompt)
	if err != nil {
		return Delta{
			NextAction: ActionDirect,
			Trace:      []string{fmt.Sprintf("classification failed (%v), answering directly", err)},
		}, nil
	}

	action := ActionDirect
	if strings.Contains(strings.ToUpper(response), "RESEARCH") {
		action = ActionResearch
	}
	return Delta{
		NextAction: action,
		Trace:      []string{fmt.Sprintf("query classified as %s", action)},
	}, nil
}

func (e *Engine) plan(ctx context.Context, state State) (Delta, error) {
	prompt := fmt.Sprintf(`Create a detailed research plan for this query: %s

Your plan should include:
1. Key search terms and phrases
2. Types of information to look for
3. Search strategy (broad first, then specific)
4. Quality criteria for sources

Research Plan:`, state.Query)

	response, err := e.model.Invoke(ctx, prompt)
	if err != nil {
		return Delta{}, fmt.Errorf("planning failed: %w", err)
	}
	return Delta{
		Plan:            response,
		ResetIterations: true,
		Trace:           []string{"research plan created"},
	}, nil
}

// search invokes the search tool. The first iteration searches the raw
// query; later iterations refine it with the latest reflection. Tool
// failures are tolerated: the iteration still counts, no result is
// appended, and the run continues.
func (e *Engine) search(ctx context.Context, state State) (Delta, error) {
	searchQuery := state.Query
	if state.Iterations > 0 && state.Reflection != "" {
		searchQuery = state.Query + " " + state.Reflection
	}

	result, err := e.tools.Invoke(ctx, "search", map[string]interface{}{"query": searchQuery})
	if err != nil {
		e.metrics.recordSearchFailure()
		return Delta{
			SearchExecuted: true,
			Trace:          []string{fmt.Sprintf("search failed: %v", err)},
		}, nil
	}
	return Delta{
		SearchExecuted: true,
		SearchResult:   &result,
		Trace:          []string{fmt.Sprintf("executed search: %s", searchQuery)},
	}, nil
}

func (e *Engine) reflect(ctx context.Context, state State) (Delta, error) {
	latest := "No results"
	if len(state.SearchResults) > 0 {
		latest = state.SearchResults[len(state.SearchResults)-1]
	}

	prompt := fmt.Sprintf(`Original query: %s
Research plan: %s
Current iteration: %d

Latest search results:
%s

Reflect on:
1. How well do current results answer the original query?
2. What information is still missing?
3. What should be the next search strategy?
4. Should we continue searching or synthesize an answer?

Reflection:`, state.Query, state.Plan, state.Iterations, latest)

	response, err := e.model.Invoke(ctx, prompt)
	if err != nil {
		return Delta{}, fmt.Errorf("reflection failed: %w", err)
	}
	return Delta{
		Reflection: response,
		Trace:      []string{"reflected on search results"},
	}, nil
}

// decide maps the model's continue/finish signal to the next action. The
// iteration ceiling overrides the model: past it the answer is always
// finish, whatever the model said.
func (e *Engine) decide(ctx context.Context, state State) (Delta, error) {
	prompt := fmt.Sprintf(`Based on the reflection: %s
Current iteration: %d

Should we:
- CONTINUE searching (if more information needed, max %d iterations)
- FINISH and synthesize answer (if sufficient information gathered)

Decision:`, state.Reflection, state.Iterations, maxSearchIterations)

	response, err := e.model.Invoke(ctx, prompt)
	if err != nil {
		return Delta{}, fmt.Errorf("decision failed: %w", err)
	}

	action := ActionFinish
	if strings.Contains(strings.ToUpper(response), "CONTINUE") && state.Iterations < maxSearchIterations {
		action = ActionContinue
	}
	return Delta{
		NextAction: action,
		Trace:      []string{fmt.Sprintf("decision: %s", action)},
	}, nil
}

func (e *Engine) synthesize(ctx context.Context, state State) (Delta, error) {
	plan := state.Plan
	if plan == "" {
		plan = "No research plan"
	}
	reflection := state.Reflection
	if reflection == "" {
		reflection = "No reflection"
	}

	prompt := fmt.Sprintf(`Original query: %s

Research conducted:
%s

Search results:
%s

Reflection:
%s

Provide a comprehensive, well-structured answer to the original query based on all the research gathered.
Include:
1. Direct answer to the question
2. Supporting evidence from research
3. Any important caveats or limitations

IMPORTANT: Answer in the same language as the original query.

Final Answer:`, state.Query, plan, strings.Join(state.SearchResults, "\n"), reflection)

	response, err := e.model.Invoke(ctx, prompt)
	if err != nil {
		return Delta{}, fmt.Errorf("synthesis failed: %w", err)
	}
	if response == "" {
		response = "No answer generated"
	}
	return Delta{
		FinalAnswer: response,
		Trace:       []string{"final answer generated"},
	}, nil
}
