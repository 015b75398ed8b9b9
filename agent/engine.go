package agent

import (
	"context"
	"time"

	"github.com/dshills/researchagent-go/agent/checkpoint"
	"github.com/dshills/researchagent-go/agent/model"
	"github.com/dshills/researchagent-go/agent/tool"
	"github.com/dshills/researchagent-go/emit"
)

// DefaultBudget is the step budget used when a run does not set one.
const DefaultBudget = 50

// Engine drives the research workflow state machine.
//
// Each run executes steps strictly sequentially for its thread id,
// checkpointing state after every step; many runs for different thread ids
// may execute concurrently on one Engine. The step budget is the only
// built-in cancellation mechanism: when it is exhausted before the machine
// reaches its terminal step, the engine returns a degraded best-effort
// answer instead of an error.
type Engine struct {
	model   model.Model
	tools   *tool.Registry
	log     checkpoint.Log[State]
	emitter emit.Emitter
	metrics *Metrics
}

// Options configures optional Engine collaborators. Zero values are valid.
type Options struct {
	// Emitter receives one event per completed step. Nil discards events.
	Emitter emit.Emitter

	// Metrics records run and step metrics. Nil disables metrics.
	Metrics *Metrics
}

// NewEngine creates an Engine. The model, tool registry, and checkpoint log
// are required; missing ones surface as an error from Run.
func NewEngine(m model.Model, tools *tool.Registry, log checkpoint.Log[State], opts Options) *Engine {
	emitter := opts.Emitter
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Engine{
		model:   m,
		tools:   tools,
		log:     log,
		emitter: emitter,
		metrics: opts.Metrics,
	}
}

// Result is the outcome of one run. Answer is always non-empty on a nil
// error: budget exhaustion produces a degraded answer, never a failure.
type Result struct {
	Answer     string   `json:"answer"`
	Trace      []string `json:"trace"`
	Iterations int      `json:"iteration_count"`
	Degraded   bool     `json:"degraded"`
}

// Run executes the workflow for query under the given step budget.
// budget <= 0 selects DefaultBudget.
//
// Errors are returned only for failures outside the budget-exhaustion
// path: invalid input, a fatal model failure in a non-tolerated step, or a
// checkpoint write failure.
func (e *Engine) Run(ctx context.Context, threadID, query string, budget int) (Result, error) {
	if err := e.validate(threadID, query); err != nil {
		return Result{}, err
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	state := State{Query: query}
	if _, err := e.log.Record(ctx, threadID, "initial", state); err != nil {
		return Result{}, &EngineError{
			Message: "failed to record initial checkpoint: " + err.Error(),
			Code:    "CHECKPOINT_ERROR",
		}
	}

	step := StepClassify
	for executed := 0; step != StepTerminal; executed++ {
		if executed >= budget {
			result := e.degrade(ctx, threadID, state, budget)
			e.metrics.recordRun("degraded")
			return result, nil
		}

		select {
		case <-ctx.Done():
			e.metrics.recordRun("error")
			return Result{}, ctx.Err()
		default:
		}

		start := time.Now()
		delta, err := e.executeStep(ctx, step, state)
		if err != nil {
			e.metrics.observeStep(step.String(), "error", time.Since(start))
			e.metrics.recordRun("error")
			return Result{}, &EngineError{
				Message: step.String() + ": " + err.Error(),
				Code:    "STEP_FAILED",
			}
		}
		e.metrics.observeStep(step.String(), "success", time.Since(start))

		state = reduce(state, delta)

		cp, err := e.log.Record(ctx, threadID, step.String(), state)
		if err != nil {
			e.metrics.recordRun("error")
			return Result{}, &EngineError{
				Message: "failed to record checkpoint: " + err.Error(),
				Code:    "CHECKPOINT_ERROR",
			}
		}

		e.emitter.Emit(emit.Event{
			ThreadID: threadID,
			Seq:      cp.Seq,
			Step:     step.String(),
			Msg:      "step completed",
			Meta: map[string]interface{}{
				"iterations": state.Iterations,
			},
		})

		next, err := transition(step, state.NextAction)
		if err != nil {
			e.metrics.recordRun("error")
			return Result{}, err
		}
		step = next
	}

	e.metrics.recordRun("completed")
	return Result{
		Answer:     state.FinalAnswer,
		Trace:      state.Trace,
		Iterations: state.Iterations,
	}, nil
}

// History returns every checkpoint recorded for a thread, oldest first.
func (e *Engine) History(ctx context.Context, threadID string) ([]checkpoint.Checkpoint[State], error) {
	return e.log.History(ctx, threadID)
}

func (e *Engine) validate(threadID, query string) error {
	switch {
	case e.model == nil:
		return &EngineError{Message: "no model configured", Code: "INVALID_CONFIG"}
	case e.tools == nil:
		return &EngineError{Message: "no tool registry configured", Code: "INVALID_CONFIG"}
	case e.log == nil:
		return &EngineError{Message: "no checkpoint log configured", Code: "INVALID_CONFIG"}
	case threadID == "":
		return &EngineError{Message: "thread id cannot be empty", Code: "INVALID_INPUT"}
	case query == "":
		return &EngineError{Message: "query cannot be empty", Code: "INVALID_INPUT"}
	}
	return nil
}
